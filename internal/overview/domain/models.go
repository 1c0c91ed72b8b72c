// Package domain contains the admin billing overview read models.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	usagedomain "github.com/civicgrid/civicbill/internal/usage/domain"
)

// ServiceBreakdown is one service's share of a period's billed usage.
type ServiceBreakdown struct {
	ServiceType usagedomain.ServiceType `json:"service_type"`
	Quantity    int64                   `json:"quantity"`
	AmountPaise int64                   `json:"amount"`
	// Percent is this service's share of the period total. Shares across
	// the breakdown sum to 100 within rounding noise.
	Percent float64 `json:"percent"`
}

// CustomerTotal ranks one customer by billed usage in a period.
type CustomerTotal struct {
	CustomerID snowflake.ID `json:"customer_id"`
	Count      int64        `json:"count"`
	TotalPaise int64        `json:"total"`
}

// Overview is the cross-customer billing picture for one period. It is
// recomputed on demand from usage events and invoices, never stored.
type Overview struct {
	Period        string `json:"period"`
	Currency      string `json:"currency"`
	CustomerCount int    `json:"customer_count"`
	// EventCount sums event quantities across every customer.
	EventCount int64 `json:"event_count"`
	TotalPaise int64 `json:"estimated_total"`

	Breakdown []ServiceBreakdown `json:"breakdown"`
	// TopCustomers is ordered by total descending; equal totals order by
	// customer id ascending so the ranking is stable.
	TopCustomers []CustomerTotal `json:"top_customers"`

	// InvoiceStatusCounts counts the period's invoices by status.
	InvoiceStatusCounts map[string]int64 `json:"invoice_status_counts"`

	GeneratedAt time.Time `json:"generated_at"`
}

// ComputeRequest selects the period and ranking depth for an overview.
type ComputeRequest struct {
	// Period is the YYYY-MM billing month; empty means the current period.
	Period string
	// TopN caps the customer ranking; zero applies the default of 10.
	TopN int
}

// Service computes the admin billing overview.
type Service interface {
	// ComputeOverview aggregates every customer's usage for the period.
	// It is all-or-nothing: if any customer's usage cannot be computed
	// the whole overview fails rather than under-reporting totals.
	ComputeOverview(ctx context.Context, req ComputeRequest) (*Overview, error)
}

var (
	ErrInvalidPeriod = errors.New("invalid_period")
	// ErrPartialAggregation marks an overview abandoned because at least
	// one customer's usage could not be computed.
	ErrPartialAggregation = errors.New("partial_aggregation")
)
