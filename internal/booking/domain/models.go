package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// BookingStatus is PENDING until the paired invoice settles.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// InvoiceStatus moves PENDING -> PAID on settlement, or PENDING -> CANCELLED
// when the booking is withdrawn.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// PaymentMethod is how an invoice was settled.
type PaymentMethod string

const (
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
)

// Booking is a reservation of an offer by a user, pending payment.
type Booking struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID  `gorm:"not null;index" json:"user_id"`
	SchoolID  snowflake.ID  `gorm:"not null;index" json:"school_id"`
	OfferID   snowflake.ID  `gorm:"not null" json:"offer_id"`
	Date      time.Time     `gorm:"column:booking_date;not null" json:"date"`
	Time      string        `gorm:"column:booking_time;not null" json:"time"`
	Status    BookingStatus `gorm:"type:text;not null" json:"status"`
	CreatedAt time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Booking) TableName() string { return "bookings" }

// Invoice is the billing record paired 1:1 with a booking. Once PAID, the
// payment fields never change; a repeated settlement is a no-op.
type Invoice struct {
	ID               snowflake.ID   `gorm:"primaryKey" json:"id"`
	BookingID        snowflake.ID   `gorm:"not null;uniqueIndex" json:"booking_id"`
	UserID           snowflake.ID   `gorm:"not null;index" json:"user_id"`
	Amount           int64          `gorm:"not null" json:"amount"`
	Status           InvoiceStatus  `gorm:"type:text;not null" json:"status"`
	PaymentMethod    *PaymentMethod `gorm:"type:text" json:"payment_method,omitempty"`
	PaymentReference *string        `gorm:"type:text" json:"payment_reference,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	PaidAt           *time.Time     `json:"paid_at,omitempty"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }
