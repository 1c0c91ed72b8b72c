// Package store persists usage events and serves the read windows the
// billing core aggregates over.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/civicgrid/civicbill/internal/config"
	usagedomain "github.com/civicgrid/civicbill/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StoreParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
	Cfg config.Config
}

// Store is the gorm-backed usage event store. Every call is bounded by the
// configured timeout; expiry and connection failures surface as
// ErrUpstreamUnavailable so callers can tell "no usage" from "no answer".
type Store struct {
	db      *gorm.DB
	log     *zap.Logger
	timeout time.Duration
}

func NewStore(p StoreParam) usagedomain.EventStore {
	timeout := p.Cfg.Billing.StoreTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{
		db:      p.DB,
		log:     p.Log.Named("usage.store"),
		timeout: timeout,
	}
}

func (s *Store) ListEvents(ctx context.Context, customerID snowflake.ID, start, end time.Time) ([]usagedomain.UsageEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var events []usagedomain.UsageEvent
	err := s.db.WithContext(ctx).
		Where("customer_id = ? AND recorded_at >= ? AND recorded_at < ?", customerID, start, end).
		Order("recorded_at DESC").
		Order("id DESC").
		Find(&events).Error
	if err != nil {
		return nil, s.asUpstreamError("list events", err)
	}
	return events, nil
}

func (s *Store) ListCustomersWithEvents(ctx context.Context, start, end time.Time) ([]snowflake.ID, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var ids []snowflake.ID
	err := s.db.WithContext(ctx).
		Model(&usagedomain.UsageEvent{}).
		Distinct("customer_id").
		Where("recorded_at >= ? AND recorded_at < ?", start, end).
		Order("customer_id ASC").
		Pluck("customer_id", &ids).Error
	if err != nil {
		return nil, s.asUpstreamError("list customers", err)
	}
	return ids, nil
}

func (s *Store) Insert(ctx context.Context, event *usagedomain.UsageEvent) (*usagedomain.UsageEvent, error) {
	return s.InsertTx(ctx, s.db, event)
}

func (s *Store) InsertTx(ctx context.Context, tx *gorm.DB, event *usagedomain.UsageEvent) (*usagedomain.UsageEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)
	if result.Error != nil {
		return nil, s.asUpstreamError("insert event", result.Error)
	}
	if result.RowsAffected > 0 {
		return event, nil
	}

	// Conflict on (customer_id, idempotency_key): the event was already
	// ingested, return the original row.
	if event.IdempotencyKey == nil {
		return event, nil
	}
	var existing usagedomain.UsageEvent
	err := tx.WithContext(ctx).
		Where("customer_id = ? AND idempotency_key = ?", event.CustomerID, *event.IdempotencyKey).
		First(&existing).Error
	if err != nil {
		return nil, s.asUpstreamError("load deduplicated event", err)
	}
	return &existing, nil
}

func (s *Store) asUpstreamError(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", usagedomain.ErrUpstreamUnavailable, op)
	}
	s.log.Warn("event store call failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s: %v", usagedomain.ErrUpstreamUnavailable, op, err)
}
