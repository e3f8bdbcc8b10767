package reconcile

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	bookingdomain "github.com/drivelane/drivelane/internal/booking/domain"
	"github.com/drivelane/drivelane/internal/booking/repository"
	catalogdomain "github.com/drivelane/drivelane/internal/catalog/domain"
	catalogservice "github.com/drivelane/drivelane/internal/catalog/service"
	"github.com/drivelane/drivelane/internal/clock"
	"github.com/drivelane/drivelane/internal/config"
	"github.com/drivelane/drivelane/internal/events"
)

var testDBSeq atomic.Int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:reconcile_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	statements := []string{
		`CREATE TABLE schools (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			city TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE offers (
			id INTEGER PRIMARY KEY,
			school_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price BIGINT NOT NULL,
			hours INTEGER NOT NULL,
			permit_type TEXT NOT NULL DEFAULT 'B',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE bookings (
			id INTEGER PRIMARY KEY,
			user_id BIGINT NOT NULL,
			school_id BIGINT NOT NULL,
			offer_id BIGINT NOT NULL,
			booking_date TIMESTAMP NOT NULL,
			booking_time TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE invoices (
			id INTEGER PRIMARY KEY,
			booking_id BIGINT NOT NULL UNIQUE,
			user_id BIGINT NOT NULL,
			amount BIGINT NOT NULL,
			status TEXT NOT NULL,
			payment_method TEXT,
			payment_reference TEXT,
			created_at TIMESTAMP NOT NULL,
			paid_at TIMESTAMP,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE domain_events (
			id INTEGER PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload TEXT,
			dedupe_key TEXT UNIQUE,
			published BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

type workerFixture struct {
	db      *gorm.DB
	worker  *Worker
	repo    bookingdomain.Repository
	node    *snowflake.Node
	now     time.Time
	offerID snowflake.ID
}

func setupWorker(t *testing.T) *workerFixture {
	t.Helper()
	db := setupTestDB(t)

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	now := time.Date(2025, 5, 2, 12, 0, 0, 0, time.UTC)

	catalogSvc := catalogservice.NewService(catalogservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.FixedClock{Instant: now},
		Cfg:   config.Config{OfferCacheTTL: time.Minute},
	})
	repo := repository.Provide()
	worker := NewWorker(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.FixedClock{Instant: now},
		Outbox:     events.NewOutbox(db, node),
		Repo:       repo,
		CatalogSvc: catalogSvc,
		Config:     Config{BatchSize: 10, GracePeriod: 5 * time.Minute},
	})

	ctx := context.Background()
	school, err := catalogSvc.CreateSchool(ctx, catalogdomain.CreateSchoolRequest{Name: "Repair School"})
	if err != nil {
		t.Fatalf("create school: %v", err)
	}
	offer, err := catalogSvc.CreateOffer(ctx, catalogdomain.CreateOfferRequest{
		SchoolID: school.ID,
		Name:     "Repair Pack",
		Price:    15000,
		Hours:    2,
	})
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}

	return &workerFixture{db: db, worker: worker, repo: repo, node: node, now: now, offerID: offer.ID}
}

func (f *workerFixture) insertBooking(t *testing.T, status bookingdomain.BookingStatus, age time.Duration) *bookingdomain.Booking {
	t.Helper()
	createdAt := f.now.Add(-age)
	booking := bookingdomain.Booking{
		ID:        f.node.Generate(),
		UserID:    300,
		SchoolID:  1,
		OfferID:   f.offerID,
		Date:      f.now,
		Time:      "09:00",
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := f.repo.InsertBooking(context.Background(), f.db, &booking); err != nil {
		t.Fatalf("insert booking: %v", err)
	}
	return &booking
}

func TestRunOnceRepairsOrphanedBooking(t *testing.T) {
	f := setupWorker(t)
	booking := f.insertBooking(t, bookingdomain.BookingStatusPending, time.Hour)

	if err := f.worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	invoice, err := f.repo.FindInvoiceByBooking(context.Background(), f.db, booking.ID)
	if err != nil {
		t.Fatalf("find invoice: %v", err)
	}
	if invoice == nil {
		t.Fatalf("expected repaired invoice for orphaned booking")
	}
	if invoice.Status != bookingdomain.InvoiceStatusPending {
		t.Fatalf("expected PENDING invoice, got %s", invoice.Status)
	}
	if invoice.Amount != 15000 {
		t.Fatalf("expected amount from offer, got %d", invoice.Amount)
	}

	var count int64
	if err := f.db.Table("domain_events").Where("event_type = ?", events.TypeOrphanInvoiceCreated).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 repair event, got %d", count)
	}
}

func TestRunOnceSkipsRecentOrphans(t *testing.T) {
	f := setupWorker(t)
	booking := f.insertBooking(t, bookingdomain.BookingStatusPending, time.Minute)

	if err := f.worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	invoice, err := f.repo.FindInvoiceByBooking(context.Background(), f.db, booking.ID)
	if err != nil {
		t.Fatalf("find invoice: %v", err)
	}
	if invoice != nil {
		t.Fatalf("a booking inside the grace period must not be repaired yet")
	}
}

func TestRunOnceRedrivesHalfSettledPair(t *testing.T) {
	f := setupWorker(t)
	booking := f.insertBooking(t, bookingdomain.BookingStatusPending, time.Minute)

	paidAt := f.now.Add(-time.Minute)
	method := bookingdomain.PaymentMethodCard
	reference := "pay_half"
	invoice := bookingdomain.Invoice{
		ID:               f.node.Generate(),
		BookingID:        booking.ID,
		UserID:           booking.UserID,
		Amount:           15000,
		Status:           bookingdomain.InvoiceStatusPaid,
		PaymentMethod:    &method,
		PaymentReference: &reference,
		PaidAt:           &paidAt,
		CreatedAt:        paidAt,
		UpdatedAt:        paidAt,
	}
	if err := f.repo.InsertInvoice(context.Background(), f.db, &invoice); err != nil {
		t.Fatalf("insert invoice: %v", err)
	}

	if err := f.worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	repaired, err := f.repo.FindBooking(context.Background(), f.db, booking.ID)
	if err != nil {
		t.Fatalf("find booking: %v", err)
	}
	if repaired.Status != bookingdomain.BookingStatusConfirmed {
		t.Fatalf("expected CONFIRMED after redrive, got %s", repaired.Status)
	}

	var count int64
	if err := f.db.Table("domain_events").Where("event_type = ?", events.TypeBookingConfirmRedriven).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 redrive event, got %d", count)
	}
}

func TestRunOnceIsIdempotent(t *testing.T) {
	f := setupWorker(t)
	booking := f.insertBooking(t, bookingdomain.BookingStatusPending, time.Hour)

	for i := 0; i < 2; i++ {
		if err := f.worker.RunOnce(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	var count int64
	if err := f.db.Table("invoices").Where("booking_id = ?", booking.ID).Count(&count).Error; err != nil {
		t.Fatalf("count invoices: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 invoice after repeated runs, got %d", count)
	}
}
