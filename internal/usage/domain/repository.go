package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// EventStore is the read/write surface over durable usage events. The billing
// core only ever reads event windows and appends new events.
type EventStore interface {
	// ListEvents returns a customer's events with recorded_at in
	// [start, end), ordered most-recent-first.
	ListEvents(ctx context.Context, customerID snowflake.ID, start, end time.Time) ([]UsageEvent, error)
	// ListCustomersWithEvents returns the distinct customers having at
	// least one event in [start, end).
	ListCustomersWithEvents(ctx context.Context, start, end time.Time) ([]snowflake.ID, error)
	// Insert appends one event. Events sharing a customer and idempotency
	// key are stored once; replays return the original row.
	Insert(ctx context.Context, event *UsageEvent) (*UsageEvent, error)
	// InsertTx is Insert inside a caller-owned transaction, so the event
	// and its side effects commit or roll back together.
	InsertTx(ctx context.Context, tx *gorm.DB, event *UsageEvent) (*UsageEvent, error)
}
