package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/civicgrid/civicbill/internal/config"
	usagedomain "github.com/civicgrid/civicbill/internal/usage/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupStoreTest(t *testing.T) (*gorm.DB, usagedomain.EventStore) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE usage_events (
			id INTEGER PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			service_type TEXT NOT NULL,
			quantity BIGINT NOT NULL,
			urgency TEXT NOT NULL,
			booking_id TEXT NOT NULL,
			idempotency_key TEXT,
			metadata TEXT,
			recorded_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE (customer_id, idempotency_key)
		)`,
	).Error; err != nil {
		t.Fatalf("ddl: %v", err)
	}

	cfg := config.Config{}
	cfg.Billing.StoreTimeout = 5 * time.Second
	return db, NewStore(StoreParam{DB: db, Log: zap.NewNop(), Cfg: cfg})
}

func storeEvent(id, customerID snowflake.ID, recordedAt time.Time) *usagedomain.UsageEvent {
	return &usagedomain.UsageEvent{
		ID:          id,
		CustomerID:  customerID,
		ServiceType: usagedomain.ServiceAmbulance,
		Quantity:    1,
		Urgency:     usagedomain.UrgencyLow,
		BookingID:   "bk-" + id.String(),
		RecordedAt:  recordedAt,
		CreatedAt:   recordedAt,
	}
}

func TestListEventsWindowIsHalfOpen(t *testing.T) {
	_, store := setupStoreTest(t)
	ctx := context.Background()

	start := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

	// One event exactly at each boundary plus one inside.
	for i, at := range []time.Time{start, start.Add(360 * time.Hour), end} {
		if _, err := store.Insert(ctx, storeEvent(snowflake.ID(i+1), 42, at)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	events, err := store.ListEvents(ctx, 42, start, end)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected the end boundary to be exclusive, got %d events", len(events))
	}
	// Newest first.
	if !events[0].RecordedAt.After(events[1].RecordedAt) {
		t.Fatalf("expected recorded_at desc, got %v then %v", events[0].RecordedAt, events[1].RecordedAt)
	}
}

func TestListCustomersWithEventsAscending(t *testing.T) {
	_, store := setupStoreTest(t)
	ctx := context.Background()

	june := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	for i, customerID := range []snowflake.ID{300, 100, 200, 100} {
		if _, err := store.Insert(ctx, storeEvent(snowflake.ID(i+1), customerID, june)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	ids, err := store.ListCustomersWithEvents(ctx,
		time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("list customers: %v", err)
	}
	if len(ids) != 3 || ids[0] != 100 || ids[1] != 200 || ids[2] != 300 {
		t.Fatalf("expected distinct ascending ids, got %v", ids)
	}
}

func TestInsertDeduplicatesOnIdempotencyKey(t *testing.T) {
	_, store := setupStoreTest(t)
	ctx := context.Background()

	key := "ik-9"
	first := storeEvent(1, 42, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	first.IdempotencyKey = &key
	stored, err := store.Insert(ctx, first)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}

	duplicate := storeEvent(2, 42, time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC))
	duplicate.IdempotencyKey = &key
	again, err := store.Insert(ctx, duplicate)
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if again.ID != stored.ID {
		t.Fatalf("expected the original event back, got %s", again.ID)
	}

	// Same key under a different customer is a distinct event.
	other := storeEvent(3, 77, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC))
	other.IdempotencyKey = &key
	if _, err := store.Insert(ctx, other); err != nil {
		t.Fatalf("other customer insert: %v", err)
	}
}

func TestStoreFailureMapsToUpstreamUnavailable(t *testing.T) {
	db, store := setupStoreTest(t)
	if err := db.Exec("DROP TABLE usage_events").Error; err != nil {
		t.Fatalf("drop: %v", err)
	}

	_, err := store.ListEvents(context.Background(), 42,
		time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, usagedomain.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream_unavailable, got %v", err)
	}
}
