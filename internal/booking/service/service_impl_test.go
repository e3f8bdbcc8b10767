package service

import (
	"context"
	"errors"
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
	dsn := fmt.Sprintf("file:booking_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
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

func newTestService(t *testing.T, db *gorm.DB) (*Service, catalogdomain.Service) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	catalogSvc := catalogservice.NewService(catalogservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.SystemClock{},
		Cfg:   config.Config{OfferCacheTTL: time.Minute},
	})

	svc := &Service{
		db:         db,
		log:        zap.NewNop(),
		genID:      node,
		clock:      clock.SystemClock{},
		outbox:     events.NewOutbox(db, node),
		repo:       repository.Provide(),
		catalogSvc: catalogSvc,
	}
	return svc, catalogSvc
}

func createBookingPair(t *testing.T, svc *Service, catalogSvc catalogdomain.Service) (*bookingdomain.Booking, *bookingdomain.Invoice) {
	t.Helper()
	ctx := context.Background()
	school, err := catalogSvc.CreateSchool(ctx, catalogdomain.CreateSchoolRequest{Name: "Booking School"})
	if err != nil {
		t.Fatalf("create school: %v", err)
	}
	offer, err := catalogSvc.CreateOffer(ctx, catalogdomain.CreateOfferRequest{
		SchoolID: school.ID,
		Name:     "Exam Pack",
		Price:    12900,
		Hours:    1,
	})
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}

	booking, invoice, err := svc.CreateBooking(ctx, bookingdomain.CreateBookingRequest{
		UserID:   200,
		SchoolID: school.ID,
		OfferID:  offer.ID,
		Date:     time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Time:     "10:00",
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return booking, invoice
}

func TestCreateBookingPairsInvoice(t *testing.T) {
	db := setupTestDB(t)
	svc, catalogSvc := newTestService(t, db)

	booking, invoice := createBookingPair(t, svc, catalogSvc)

	if booking.Status != bookingdomain.BookingStatusPending {
		t.Fatalf("expected PENDING booking, got %s", booking.Status)
	}
	if invoice.Status != bookingdomain.InvoiceStatusPending {
		t.Fatalf("expected PENDING invoice, got %s", invoice.Status)
	}
	if invoice.BookingID != booking.ID {
		t.Fatalf("invoice not paired to booking")
	}
	if invoice.Amount != 12900 {
		t.Fatalf("expected amount from offer, got %d", invoice.Amount)
	}
}

func TestSettlePaymentConfirmsBooking(t *testing.T) {
	db := setupTestDB(t)
	svc, catalogSvc := newTestService(t, db)
	booking, invoice := createBookingPair(t, svc, catalogSvc)

	settled, err := svc.SettlePayment(context.Background(), invoice.ID, bookingdomain.PaymentMethodCard, "pay_abc123")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.Status != bookingdomain.InvoiceStatusPaid {
		t.Fatalf("expected PAID, got %s", settled.Status)
	}
	if settled.PaidAt == nil || settled.PaymentReference == nil || *settled.PaymentReference != "pay_abc123" {
		t.Fatalf("expected payment fields populated")
	}

	updated, err := svc.GetBooking(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if updated.Status != bookingdomain.BookingStatusConfirmed {
		t.Fatalf("expected CONFIRMED booking, got %s", updated.Status)
	}
}

func TestSettlePaymentIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc, catalogSvc := newTestService(t, db)
	_, invoice := createBookingPair(t, svc, catalogSvc)
	ctx := context.Background()

	first, err := svc.SettlePayment(ctx, invoice.ID, bookingdomain.PaymentMethodCard, "pay_first")
	if err != nil {
		t.Fatalf("first settle: %v", err)
	}

	second, err := svc.SettlePayment(ctx, invoice.ID, bookingdomain.PaymentMethodTransfer, "pay_second")
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if second.Status != bookingdomain.InvoiceStatusPaid {
		t.Fatalf("expected PAID, got %s", second.Status)
	}
	if second.PaymentReference == nil || *second.PaymentReference != "pay_first" {
		t.Fatalf("duplicate settlement must not overwrite payment fields, got %v", second.PaymentReference)
	}
	if second.PaidAt == nil || !second.PaidAt.Equal(*first.PaidAt) {
		t.Fatalf("duplicate settlement must keep original paid_at")
	}

	var count int64
	if err := db.Table("domain_events").Where("event_type = ?", events.TypePaymentSettled).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 settlement event, got %d", count)
	}
}

func TestSettlePaymentRejectsVoidedInvoice(t *testing.T) {
	db := setupTestDB(t)
	svc, catalogSvc := newTestService(t, db)
	booking, invoice := createBookingPair(t, svc, catalogSvc)
	ctx := context.Background()

	if _, err := svc.UpdateBookingStatus(ctx, booking.ID, bookingdomain.BookingStatusCancelled); err != nil {
		t.Fatalf("cancel booking: %v", err)
	}

	_, err := svc.SettlePayment(ctx, invoice.ID, bookingdomain.PaymentMethodCash, "pay_late")
	if !errors.Is(err, bookingdomain.ErrInvoiceVoided) {
		t.Fatalf("expected voided invoice rejection, got %v", err)
	}
}

func TestSettlePaymentUnknownInvoice(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestService(t, db)

	_, err := svc.SettlePayment(context.Background(), 98765, bookingdomain.PaymentMethodCard, "pay_none")
	if !errors.Is(err, bookingdomain.ErrInvoiceNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateBookingStatusConfirmForcesInvoicePaid(t *testing.T) {
	db := setupTestDB(t)
	svc, catalogSvc := newTestService(t, db)
	booking, invoice := createBookingPair(t, svc, catalogSvc)
	ctx := context.Background()

	updated, err := svc.UpdateBookingStatus(ctx, booking.ID, bookingdomain.BookingStatusConfirmed)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if updated.Status != bookingdomain.BookingStatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", updated.Status)
	}

	paired, err := svc.GetInvoice(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if paired.Status != bookingdomain.InvoiceStatusPaid {
		t.Fatalf("manual confirm must settle invoice, got %s", paired.Status)
	}
}

func TestUpdateBookingStatusSameStatusIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	svc, catalogSvc := newTestService(t, db)
	booking, _ := createBookingPair(t, svc, catalogSvc)
	ctx := context.Background()

	if _, err := svc.UpdateBookingStatus(ctx, booking.ID, bookingdomain.BookingStatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	again, err := svc.UpdateBookingStatus(ctx, booking.ID, bookingdomain.BookingStatusConfirmed)
	if err != nil {
		t.Fatalf("repeated confirm must be a no-op, got %v", err)
	}
	if again.Status != bookingdomain.BookingStatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", again.Status)
	}
}

func TestUpdateBookingStatusRejectsNonPendingMove(t *testing.T) {
	db := setupTestDB(t)
	svc, catalogSvc := newTestService(t, db)
	booking, _ := createBookingPair(t, svc, catalogSvc)
	ctx := context.Background()

	if _, err := svc.UpdateBookingStatus(ctx, booking.ID, bookingdomain.BookingStatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	_, err := svc.UpdateBookingStatus(ctx, booking.ID, bookingdomain.BookingStatusCancelled)
	if !errors.Is(err, bookingdomain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestUpdateBookingStatusRejectsPending(t *testing.T) {
	db := setupTestDB(t)
	svc, catalogSvc := newTestService(t, db)
	booking, _ := createBookingPair(t, svc, catalogSvc)

	_, err := svc.UpdateBookingStatus(context.Background(), booking.ID, bookingdomain.BookingStatusPending)
	if !errors.Is(err, bookingdomain.ErrInvalidStatus) {
		t.Fatalf("expected invalid status, got %v", err)
	}
}
