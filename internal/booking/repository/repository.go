package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/drivelane/drivelane/internal/booking/domain"
	"gorm.io/gorm"
)

type gormRepository struct{}

// Provide constructs the gorm-backed booking repository.
func Provide() bookingdomain.Repository {
	return &gormRepository{}
}

func (r *gormRepository) InsertBooking(ctx context.Context, db *gorm.DB, booking *bookingdomain.Booking) error {
	return db.WithContext(ctx).Create(booking).Error
}

func (r *gormRepository) InsertInvoice(ctx context.Context, db *gorm.DB, invoice *bookingdomain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *gormRepository) FindBooking(ctx context.Context, db *gorm.DB, id snowflake.ID) (*bookingdomain.Booking, error) {
	var booking bookingdomain.Booking
	err := db.WithContext(ctx).First(&booking, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *gormRepository) FindInvoice(ctx context.Context, db *gorm.DB, id snowflake.ID) (*bookingdomain.Invoice, error) {
	var invoice bookingdomain.Invoice
	err := db.WithContext(ctx).First(&invoice, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *gormRepository) FindInvoiceByBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*bookingdomain.Invoice, error) {
	var invoice bookingdomain.Invoice
	err := db.WithContext(ctx).First(&invoice, "booking_id = ?", bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// MarkInvoicePaid flips a PENDING invoice to PAID. The status condition makes
// the write at-most-once: the second of two concurrent settlements affects
// zero rows and reports that it lost.
func (r *gormRepository) MarkInvoicePaid(ctx context.Context, db *gorm.DB, id snowflake.ID, method *bookingdomain.PaymentMethod, reference *string, paidAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, payment_method = ?, payment_reference = ?, paid_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		bookingdomain.InvoiceStatusPaid,
		method,
		reference,
		paidAt,
		paidAt,
		id,
		bookingdomain.InvoiceStatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) VoidInvoice(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		bookingdomain.InvoiceStatusCancelled,
		at,
		id,
		bookingdomain.InvoiceStatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ConfirmBooking is re-drivable: confirming an already-CONFIRMED booking
// affects zero rows and is not an error.
func (r *gormRepository) ConfirmBooking(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE bookings
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		bookingdomain.BookingStatusConfirmed,
		at,
		id,
		bookingdomain.BookingStatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) CancelBooking(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE bookings
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		bookingdomain.BookingStatusCancelled,
		at,
		id,
		bookingdomain.BookingStatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) ListBookingsByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]bookingdomain.Booking, error) {
	var bookings []bookingdomain.Booking
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *gormRepository) ListBookingsBySchool(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]bookingdomain.Booking, error) {
	var bookings []bookingdomain.Booking
	err := db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Order("created_at DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *gormRepository) ListInvoicesByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]bookingdomain.Invoice, error) {
	var invoices []bookingdomain.Invoice
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *gormRepository) ListOrphanedBookings(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]bookingdomain.Booking, error) {
	var bookings []bookingdomain.Booking
	err := db.WithContext(ctx).Raw(
		`SELECT b.*
		 FROM bookings b
		 LEFT JOIN invoices i ON i.booking_id = b.id
		 WHERE b.status = ? AND b.created_at < ? AND i.id IS NULL
		 ORDER BY b.created_at
		 LIMIT ?`,
		bookingdomain.BookingStatusPending,
		before,
		limit,
	).Scan(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *gormRepository) ListHalfSettled(ctx context.Context, db *gorm.DB, limit int) ([]bookingdomain.Invoice, error) {
	var invoices []bookingdomain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT i.*
		 FROM invoices i
		 JOIN bookings b ON b.id = i.booking_id
		 WHERE i.status = ? AND b.status = ?
		 ORDER BY i.paid_at
		 LIMIT ?`,
		bookingdomain.InvoiceStatusPaid,
		bookingdomain.BookingStatusPending,
		limit,
	).Scan(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}
