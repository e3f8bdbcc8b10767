package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/drivelane/drivelane/internal/booking/domain"
	catalogdomain "github.com/drivelane/drivelane/internal/catalog/domain"
	"github.com/drivelane/drivelane/internal/clock"
	"github.com/drivelane/drivelane/internal/events"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const settleRetryLimit = 5

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Outbox     *events.Outbox
	Repo       bookingdomain.Repository
	CatalogSvc catalogdomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	outbox     *events.Outbox
	repo       bookingdomain.Repository
	catalogSvc catalogdomain.Service
}

func NewService(p Params) bookingdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("booking.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		outbox:     p.Outbox,
		repo:       p.Repo,
		catalogSvc: p.CatalogSvc,
	}
}

// CreateBooking writes the booking, then the invoice, as two independent
// round trips. There is no transaction spanning both: if the invoice insert
// fails the booking stays PENDING without an invoice, a state the reconciler
// detects and repairs.
func (s *Service) CreateBooking(ctx context.Context, req bookingdomain.CreateBookingRequest) (*bookingdomain.Booking, *bookingdomain.Invoice, error) {
	if req.UserID == 0 || req.SchoolID == 0 || req.OfferID == 0 || req.Date.IsZero() {
		return nil, nil, bookingdomain.ErrInvalidBooking
	}

	offer, err := s.catalogSvc.GetOffer(ctx, req.OfferID)
	if err != nil {
		return nil, nil, err
	}

	now := s.clock.Now()
	booking := bookingdomain.Booking{
		ID:        s.genID.Generate(),
		UserID:    req.UserID,
		SchoolID:  req.SchoolID,
		OfferID:   req.OfferID,
		Date:      req.Date,
		Time:      req.Time,
		Status:    bookingdomain.BookingStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertBooking(ctx, s.db, &booking); err != nil {
		return nil, nil, err
	}

	invoice := bookingdomain.Invoice{
		ID:        s.genID.Generate(),
		BookingID: booking.ID,
		UserID:    req.UserID,
		Amount:    offer.Price,
		Status:    bookingdomain.InvoiceStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertInvoice(ctx, s.db, &invoice); err != nil {
		s.log.Error("booking persisted without invoice, pending reconciliation",
			zap.Int64("booking_id", int64(booking.ID)),
			zap.Error(err),
		)
		return nil, nil, err
	}

	return &booking, &invoice, nil
}

// SettlePayment drives the invoice to PAID and then the booking to CONFIRMED.
// The invoice write is the durable commit point; a crash or failure before
// the booking write leaves a half-settled pair the reconciler re-drives.
func (s *Service) SettlePayment(ctx context.Context, invoiceID snowflake.ID, method bookingdomain.PaymentMethod, reference string) (*bookingdomain.Invoice, error) {
	for attempt := 0; attempt < settleRetryLimit; attempt++ {
		invoice, err := s.repo.FindInvoice(ctx, s.db, invoiceID)
		if err != nil {
			return nil, err
		}
		if invoice == nil {
			return nil, bookingdomain.ErrInvoiceNotFound
		}

		switch invoice.Status {
		case bookingdomain.InvoiceStatusPaid:
			// Duplicate callback delivery. Nothing changes, the original
			// payment fields stand.
			return invoice, nil
		case bookingdomain.InvoiceStatusCancelled:
			return nil, bookingdomain.ErrInvoiceVoided
		}

		now := s.clock.Now()
		won, err := s.repo.MarkInvoicePaid(ctx, s.db, invoiceID, &method, &reference, now)
		if err != nil {
			return nil, err
		}
		if !won {
			// Lost to a concurrent settlement; the reload will observe PAID.
			continue
		}

		s.confirmBooking(ctx, invoice.BookingID, now)

		if err := s.outbox.Publish(ctx, events.Event{
			Type:      events.TypePaymentSettled,
			DedupeKey: "settled:" + invoiceID.String(),
			Payload: events.PaymentSettledPayload{
				InvoiceID: invoiceID.String(),
				BookingID: invoice.BookingID.String(),
				Amount:    invoice.Amount,
				Method:    string(method),
				Reference: reference,
			}.ToMap(),
		}); err != nil {
			s.log.Warn("publish settlement event", zap.Error(err))
		}

		invoice.Status = bookingdomain.InvoiceStatusPaid
		invoice.PaymentMethod = &method
		invoice.PaymentReference = &reference
		invoice.PaidAt = &now
		invoice.UpdatedAt = now
		return invoice, nil
	}

	return nil, bookingdomain.ErrConflict
}

func (s *Service) confirmBooking(ctx context.Context, bookingID snowflake.ID, now time.Time) {
	confirmed, err := s.repo.ConfirmBooking(ctx, s.db, bookingID, now)
	if err != nil {
		// The invoice is already PAID, so this pair is re-drivable by the
		// reconciler; do not fail the settlement.
		s.log.Error("invoice paid but booking confirm failed, pending reconciliation",
			zap.Int64("booking_id", int64(bookingID)),
			zap.Error(err),
		)
		return
	}
	if confirmed {
		if err := s.outbox.Publish(ctx, events.Event{
			Type:      events.TypeBookingConfirmed,
			DedupeKey: "confirmed:" + bookingID.String(),
			Payload:   map[string]any{"booking_id": bookingID.String()},
		}); err != nil {
			s.log.Warn("publish booking confirmed event", zap.Error(err))
		}
	}
}

// UpdateBookingStatus is the operator path. Confirming mirrors a settlement
// without a payment reference; the invoice flip carries the same conditional
// write, so it stays idempotent against a racing payment callback.
func (s *Service) UpdateBookingStatus(ctx context.Context, bookingID snowflake.ID, status bookingdomain.BookingStatus) (*bookingdomain.Booking, error) {
	switch status {
	case bookingdomain.BookingStatusConfirmed, bookingdomain.BookingStatusCancelled:
	default:
		return nil, bookingdomain.ErrInvalidStatus
	}

	booking, err := s.repo.FindBooking(ctx, s.db, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, bookingdomain.ErrBookingNotFound
	}
	if booking.Status == status {
		return booking, nil
	}
	if booking.Status != bookingdomain.BookingStatusPending {
		return nil, bookingdomain.ErrInvalidTransition
	}

	now := s.clock.Now()
	var moved bool
	if status == bookingdomain.BookingStatusConfirmed {
		moved, err = s.repo.ConfirmBooking(ctx, s.db, bookingID, now)
	} else {
		moved, err = s.repo.CancelBooking(ctx, s.db, bookingID, now)
	}
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, bookingdomain.ErrConflict
	}

	invoice, err := s.repo.FindInvoiceByBooking(ctx, s.db, bookingID)
	if err != nil {
		return nil, err
	}
	if invoice != nil {
		if status == bookingdomain.BookingStatusConfirmed {
			if _, err := s.repo.MarkInvoicePaid(ctx, s.db, invoice.ID, nil, nil, now); err != nil {
				return nil, err
			}
		} else {
			if _, err := s.repo.VoidInvoice(ctx, s.db, invoice.ID, now); err != nil {
				return nil, err
			}
		}
	}

	booking.Status = status
	booking.UpdatedAt = now
	return booking, nil
}

func (s *Service) GetBooking(ctx context.Context, id snowflake.ID) (*bookingdomain.Booking, error) {
	booking, err := s.repo.FindBooking(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, bookingdomain.ErrBookingNotFound
	}
	return booking, nil
}

func (s *Service) GetInvoice(ctx context.Context, id snowflake.ID) (*bookingdomain.Invoice, error) {
	invoice, err := s.repo.FindInvoice(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, bookingdomain.ErrInvoiceNotFound
	}
	return invoice, nil
}

func (s *Service) ListBookingsByUser(ctx context.Context, userID snowflake.ID) ([]bookingdomain.Booking, error) {
	return s.repo.ListBookingsByUser(ctx, s.db, userID)
}

func (s *Service) ListBookingsBySchool(ctx context.Context, schoolID snowflake.ID) ([]bookingdomain.Booking, error) {
	return s.repo.ListBookingsBySchool(ctx, s.db, schoolID)
}

func (s *Service) ListInvoicesByUser(ctx context.Context, userID snowflake.ID) ([]bookingdomain.Invoice, error) {
	return s.repo.ListInvoicesByUser(ctx, s.db, userID)
}
