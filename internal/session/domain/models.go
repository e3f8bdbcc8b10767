package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SessionStatus is one of the lifecycle states in the transition table
// (see transitions.go).
type SessionStatus string

const (
	SessionStatusScheduled  SessionStatus = "SCHEDULED"
	SessionStatusConfirmed  SessionStatus = "CONFIRMED"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusCancelled  SessionStatus = "CANCELLED"
	SessionStatusNoShow     SessionStatus = "NO_SHOW"
)

// Session is one scheduled lesson under an enrollment, optionally assigned to
// a monitor.
type Session struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	EnrollmentID snowflake.ID  `gorm:"not null;index" json:"enrollment_id"`
	MonitorID    *snowflake.ID `gorm:"index" json:"monitor_id,omitempty"`
	Date         time.Time     `gorm:"column:session_date;not null" json:"date"`
	StartTime    *time.Time    `json:"start_time,omitempty"`
	EndTime      *time.Time    `json:"end_time,omitempty"`
	Status       SessionStatus `gorm:"type:text;not null" json:"status"`
	MeetingPoint string        `gorm:"type:text;not null" json:"meeting_point"`
	Notes        string        `gorm:"type:text;not null" json:"notes"`
	CreatedAt    time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// DurationHours is the lesson length truncated to whole hours, zero when
// either time is absent.
func (s Session) DurationHours() int {
	if s.StartTime == nil || s.EndTime == nil {
		return 0
	}
	d := s.EndTime.Sub(*s.StartTime)
	if d <= 0 {
		return 0
	}
	return int(d.Hours())
}

// SessionView is a session enriched with display names for listings.
type SessionView struct {
	Session
	MonitorName string `json:"monitor_name,omitempty"`
	OfferName   string `json:"offer_name,omitempty"`
}
