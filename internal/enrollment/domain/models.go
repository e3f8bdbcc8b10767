package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// EnrollmentStatus tracks the lifecycle of a prepaid hour pack.
type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
)

// Enrollment is a student's prepaid allotment against one offer at one school.
// HoursConsumed is written only through the hour ledger (AdjustConsumed);
// Version is the optimistic-concurrency token compared on every write.
type Enrollment struct {
	ID             snowflake.ID     `gorm:"primaryKey" json:"id"`
	StudentID      snowflake.ID     `gorm:"not null;index" json:"student_id"`
	SchoolID       snowflake.ID     `gorm:"not null;index" json:"school_id"`
	OfferID        snowflake.ID     `gorm:"not null" json:"offer_id"`
	HoursPurchased int              `gorm:"not null" json:"hours_purchased"`
	HoursConsumed  int              `gorm:"not null" json:"hours_consumed"`
	Status         EnrollmentStatus `gorm:"type:text;not null" json:"status"`
	Version        int64            `gorm:"not null" json:"-"`
	CreatedAt      time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Enrollment) TableName() string { return "enrollments" }

// HoursRemaining is the balance still available for scheduling.
func (e Enrollment) HoursRemaining() int {
	return e.HoursPurchased - e.HoursConsumed
}
