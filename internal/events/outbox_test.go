package events

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/snowflake"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

func setupOutbox(t *testing.T) (*Outbox, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:events_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE domain_events (
			id INTEGER PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload TEXT,
			dedupe_key TEXT UNIQUE,
			published BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL
		)`,
	).Error; err != nil {
		t.Fatalf("create domain_events: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return NewOutbox(db, node), db
}

func TestPublishStoresEvent(t *testing.T) {
	outbox, db := setupOutbox(t)

	err := outbox.Publish(context.Background(), Event{
		Type:    TypePaymentSettled,
		Payload: map[string]any{"invoice_id": "42"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	var count int64
	if err := db.Table("domain_events").Where("event_type = ?", TypePaymentSettled).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event, got %d", count)
	}
}

func TestPublishDeduplicates(t *testing.T) {
	outbox, db := setupOutbox(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := outbox.Publish(ctx, Event{
			Type:      TypeBookingConfirmed,
			DedupeKey: "confirmed:1",
			Payload:   map[string]any{"booking_id": "1"},
		})
		if err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	var count int64
	if err := db.Table("domain_events").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected dedupe to single event, got %d", count)
	}
}

func TestPublishAllowsManyWithoutDedupeKey(t *testing.T) {
	outbox, db := setupOutbox(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := outbox.Publish(ctx, Event{
			Type:    TypeHoursClamped,
			Payload: map[string]any{"attempt": i},
		})
		if err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	var count int64
	if err := db.Table("domain_events").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 events without dedupe key, got %d", count)
	}
}

func TestPublishRejectsMissingType(t *testing.T) {
	outbox, _ := setupOutbox(t)

	if err := outbox.Publish(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error for missing event type")
	}
}
