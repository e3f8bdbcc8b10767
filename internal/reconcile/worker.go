package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/drivelane/drivelane/internal/booking/domain"
	catalogdomain "github.com/drivelane/drivelane/internal/catalog/domain"
	"github.com/drivelane/drivelane/internal/clock"
	"github.com/drivelane/drivelane/internal/events"
	obsmetrics "github.com/drivelane/drivelane/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Worker sweeps for the two partial-failure states the booking pipeline can
// leave behind: a booking persisted without its invoice, and an invoice paid
// without its booking confirmed. Both repairs are idempotent, so running the
// sweep concurrently with live traffic is safe.
type Worker struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	outbox     *events.Outbox
	repo       bookingdomain.Repository
	catalogSvc catalogdomain.Service
	cfg        Config
	metrics    *obsmetrics.ReconcileMetrics
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Outbox     *events.Outbox
	Repo       bookingdomain.Repository
	CatalogSvc catalogdomain.Service
	Config     Config `optional:"true"`
}

func NewWorker(p Params) *Worker {
	return &Worker{
		db:         p.DB,
		log:        p.Log.Named("reconcile"),
		genID:      p.GenID,
		clock:      p.Clock,
		outbox:     p.Outbox,
		repo:       p.Repo,
		catalogSvc: p.CatalogSvc,
		cfg:        p.Config.withDefaults(),
		metrics:    obsmetrics.Reconcile(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("reconciliation sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce(ctx context.Context) error {
	if w.db == nil || w.repo == nil {
		return errors.New("reconciler_unavailable")
	}

	start := w.clock.Now()
	defer func() {
		w.metrics.ObserveRunDuration(w.clock.Now().Sub(start))
	}()

	if err := w.repairOrphanedBookings(ctx); err != nil {
		return err
	}
	return w.redriveHalfSettled(ctx)
}

// repairOrphanedBookings creates the missing invoice for PENDING bookings
// whose invoice insert never landed.
func (w *Worker) repairOrphanedBookings(ctx context.Context) error {
	cutoff := w.clock.Now().Add(-w.cfg.GracePeriod)
	orphans, err := w.repo.ListOrphanedBookings(ctx, w.db, cutoff, w.cfg.BatchSize)
	if err != nil {
		return err
	}
	w.metrics.SetBacklog("orphan_booking", len(orphans))
	if len(orphans) > 0 {
		w.metrics.SetBacklogOldest("orphan_booking", w.clock.Now().Sub(orphans[0].CreatedAt))
	} else {
		w.metrics.SetBacklogOldest("orphan_booking", 0)
	}

	for _, booking := range orphans {
		offer, err := w.catalogSvc.GetOffer(ctx, booking.OfferID)
		if err != nil {
			w.log.Warn("orphaned booking references unknown offer",
				zap.Int64("booking_id", int64(booking.ID)),
				zap.Error(err),
			)
			w.metrics.IncRepair("orphan_booking", "failed")
			continue
		}

		now := w.clock.Now()
		invoice := bookingdomain.Invoice{
			ID:        w.genID.Generate(),
			BookingID: booking.ID,
			UserID:    booking.UserID,
			Amount:    offer.Price,
			Status:    bookingdomain.InvoiceStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := w.repo.InsertInvoice(ctx, w.db, &invoice); err != nil {
			// A concurrent repair or a late invoice insert may have won; the
			// unique booking_id index rejects the duplicate.
			w.log.Warn("orphan invoice insert failed",
				zap.Int64("booking_id", int64(booking.ID)),
				zap.Error(err),
			)
			w.metrics.IncRepair("orphan_booking", "skipped")
			continue
		}

		w.metrics.IncRepair("orphan_booking", "repaired")
		w.log.Info("repaired orphaned booking",
			zap.Int64("booking_id", int64(booking.ID)),
			zap.Int64("invoice_id", int64(invoice.ID)),
		)
		if err := w.outbox.Publish(ctx, events.Event{
			Type:      events.TypeOrphanInvoiceCreated,
			DedupeKey: "orphan:" + booking.ID.String(),
			Payload: events.BookingRepairPayload{
				BookingID: booking.ID.String(),
				InvoiceID: invoice.ID.String(),
			}.ToMap(),
		}); err != nil {
			w.log.Warn("publish orphan repair event", zap.Error(err))
		}
	}
	return nil
}

// redriveHalfSettled re-applies the booking confirmation for invoices whose
// settlement stopped after the durable PAID write.
func (w *Worker) redriveHalfSettled(ctx context.Context) error {
	invoices, err := w.repo.ListHalfSettled(ctx, w.db, w.cfg.BatchSize)
	if err != nil {
		return err
	}
	w.metrics.SetBacklog("half_settled", len(invoices))

	for _, invoice := range invoices {
		now := w.clock.Now()
		confirmed, err := w.repo.ConfirmBooking(ctx, w.db, invoice.BookingID, now)
		if err != nil {
			w.log.Warn("redrive booking confirm failed",
				zap.Int64("booking_id", int64(invoice.BookingID)),
				zap.Error(err),
			)
			w.metrics.IncRepair("half_settled", "failed")
			continue
		}
		if !confirmed {
			w.metrics.IncRepair("half_settled", "skipped")
			continue
		}

		w.metrics.IncRepair("half_settled", "repaired")
		w.log.Info("redrove half-settled booking",
			zap.Int64("booking_id", int64(invoice.BookingID)),
			zap.Int64("invoice_id", int64(invoice.ID)),
		)
		if err := w.outbox.Publish(ctx, events.Event{
			Type:      events.TypeBookingConfirmRedriven,
			DedupeKey: "redrive:" + invoice.ID.String(),
			Payload: events.BookingRepairPayload{
				BookingID: invoice.BookingID.String(),
				InvoiceID: invoice.ID.String(),
			}.ToMap(),
		}); err != nil {
			w.log.Warn("publish redrive event", zap.Error(err))
		}
	}
	return nil
}
