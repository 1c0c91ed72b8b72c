package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// CreateIngestRequest is a validated ingest payload.
type CreateIngestRequest struct {
	CustomerID     string         `json:"customer_id"`
	ServiceType    string         `json:"service_type"`
	Quantity       int64          `json:"quantity"`
	Urgency        string         `json:"urgency"`
	BookingID      string         `json:"booking_id"`
	RecordedAt     string         `json:"recorded_at"`
	IdempotencyKey *string        `json:"idempotency_key,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Service aggregates raw usage into summaries and accepts new events.
type Service interface {
	// ComputeUsage derives the usage summary for one customer and period.
	// Unknown customers yield a zero summary; store failures surface as
	// ErrUpstreamUnavailable, never as a silent zero.
	ComputeUsage(ctx context.Context, customerID snowflake.ID, period Period) (UsageSummary, error)
	// Ingest validates and persists one usage event.
	Ingest(ctx context.Context, req CreateIngestRequest) (*UsageEvent, error)
}

var (
	ErrInvalidPeriod       = errors.New("invalid_period")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidServiceType  = errors.New("invalid_service_type")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidUrgency      = errors.New("invalid_urgency")
	ErrInvalidBookingID    = errors.New("invalid_booking_id")
	ErrInvalidRecordedAt   = errors.New("invalid_recorded_at")
	ErrUpstreamUnavailable = errors.New("upstream_unavailable")
)
