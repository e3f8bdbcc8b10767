package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// School is a driving school record.
type School struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	City      string       `gorm:"type:text;not null" json:"city"`
	Address   string       `gorm:"type:text;not null" json:"address"`
	Phone     string       `gorm:"type:text;not null" json:"phone"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (School) TableName() string { return "schools" }

// Offer is a prepaid hour pack sold by a school. Price is the amount invoiced
// per booking; Hours is the allotment granted per enrollment.
type Offer struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	SchoolID    snowflake.ID `gorm:"not null;index" json:"school_id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Description string       `gorm:"type:text;not null" json:"description"`
	Price       int64        `gorm:"not null" json:"price"`
	Hours       int          `gorm:"not null" json:"hours"`
	PermitType  string       `gorm:"type:text;not null" json:"permit_type"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (Offer) TableName() string { return "offers" }

// Monitor is a driving instructor attached to a school.
type Monitor struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	SchoolID  snowflake.ID `gorm:"not null;index" json:"school_id"`
	FirstName string       `gorm:"type:text;not null" json:"first_name"`
	LastName  string       `gorm:"type:text;not null" json:"last_name"`
	Phone     string       `gorm:"type:text;not null" json:"phone"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (Monitor) TableName() string { return "monitors" }
