package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Service owns the booking<->invoice pairing and payment reconciliation.
type Service interface {
	// CreateBooking creates a PENDING booking and its paired PENDING invoice
	// priced from the offer. The two writes are independent; a failure after
	// the booking insert leaves an orphan that the reconciler repairs.
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*Booking, *Invoice, error)

	// SettlePayment marks the invoice PAID and confirms its booking. Settling
	// an already-PAID invoice returns it unchanged: payment callbacks may be
	// delivered more than once.
	SettlePayment(ctx context.Context, invoiceID snowflake.ID, method PaymentMethod, reference string) (*Invoice, error)

	// UpdateBookingStatus is the operator path. CONFIRMED forces the paired
	// invoice to PAID, CANCELLED voids a still-PENDING invoice.
	UpdateBookingStatus(ctx context.Context, bookingID snowflake.ID, status BookingStatus) (*Booking, error)

	GetBooking(ctx context.Context, id snowflake.ID) (*Booking, error)
	GetInvoice(ctx context.Context, id snowflake.ID) (*Invoice, error)
	ListBookingsByUser(ctx context.Context, userID snowflake.ID) ([]Booking, error)
	ListBookingsBySchool(ctx context.Context, schoolID snowflake.ID) ([]Booking, error)
	ListInvoicesByUser(ctx context.Context, userID snowflake.ID) ([]Invoice, error)
}

type CreateBookingRequest struct {
	UserID   snowflake.ID
	SchoolID snowflake.ID
	OfferID  snowflake.ID
	Date     time.Time
	Time     string
}

var (
	ErrBookingNotFound   = errors.New("booking_not_found")
	ErrInvoiceNotFound   = errors.New("invoice_not_found")
	ErrInvalidBooking    = errors.New("invalid_booking")
	ErrInvalidStatus     = errors.New("invalid_booking_status")
	ErrInvalidTransition = errors.New("invalid_booking_transition")
	ErrInvoiceVoided     = errors.New("invoice_voided")
	ErrConflict          = errors.New("conflict")
)
