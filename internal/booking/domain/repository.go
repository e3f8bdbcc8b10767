package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the storage surface for bookings and invoices. The Mark*,
// Confirm* and Void* writes are conditional on the current status and report
// whether this caller won the transition, which is what makes settlement
// idempotent under concurrent delivery.
type Repository interface {
	InsertBooking(ctx context.Context, db *gorm.DB, booking *Booking) error
	InsertInvoice(ctx context.Context, db *gorm.DB, invoice *Invoice) error

	FindBooking(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	FindInvoice(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindInvoiceByBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*Invoice, error)

	MarkInvoicePaid(ctx context.Context, db *gorm.DB, id snowflake.ID, method *PaymentMethod, reference *string, paidAt time.Time) (bool, error)
	VoidInvoice(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	ConfirmBooking(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	CancelBooking(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)

	ListBookingsByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]Booking, error)
	ListBookingsBySchool(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]Booking, error)
	ListInvoicesByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]Invoice, error)

	// ListOrphanedBookings returns PENDING bookings created before the cutoff
	// that have no invoice row.
	ListOrphanedBookings(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]Booking, error)

	// ListHalfSettled returns PAID invoices whose booking is still PENDING.
	ListHalfSettled(ctx context.Context, db *gorm.DB, limit int) ([]Invoice, error)
}
