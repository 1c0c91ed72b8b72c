package metrics

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BillingMetrics counts domain-level billing activity.
type BillingMetrics struct {
	usageIngested     metric.Int64Counter
	invoicesGenerated metric.Int64Counter
	invoicesFinalized metric.Int64Counter
	overviewComputed  metric.Int64Counter
}

// NewBillingMetrics creates billing counters.
func NewBillingMetrics(cfg Config, provider metric.MeterProvider) (*BillingMetrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "civicbill"
	}
	meter := provider.Meter(name + "/billing")

	usageIngested, err := meter.Int64Counter("billing.usage_events.ingested")
	if err != nil {
		return nil, err
	}
	invoicesGenerated, err := meter.Int64Counter("billing.invoices.generated")
	if err != nil {
		return nil, err
	}
	invoicesFinalized, err := meter.Int64Counter("billing.invoices.finalized")
	if err != nil {
		return nil, err
	}
	overviewComputed, err := meter.Int64Counter("billing.overview.computed")
	if err != nil {
		return nil, err
	}

	return &BillingMetrics{
		usageIngested:     usageIngested,
		invoicesGenerated: invoicesGenerated,
		invoicesFinalized: invoicesFinalized,
		overviewComputed:  overviewComputed,
	}, nil
}

// IncUsageIngested counts one accepted usage event for a service type.
func (m *BillingMetrics) IncUsageIngested(ctx context.Context, serviceType string) {
	if m == nil {
		return
	}
	m.usageIngested.Add(ctx, 1, metric.WithAttributes(attribute.String("service_type", serviceType)))
}

// IncInvoiceGenerated counts one generated invoice.
func (m *BillingMetrics) IncInvoiceGenerated(ctx context.Context, provisional bool) {
	if m == nil {
		return
	}
	m.invoicesGenerated.Add(ctx, 1, metric.WithAttributes(attribute.Bool("provisional", provisional)))
}

// IncInvoiceFinalized counts one finalized invoice.
func (m *BillingMetrics) IncInvoiceFinalized(ctx context.Context) {
	if m == nil {
		return
	}
	m.invoicesFinalized.Add(ctx, 1)
}

// IncOverviewComputed counts one admin overview computation.
func (m *BillingMetrics) IncOverviewComputed(ctx context.Context) {
	if m == nil {
		return
	}
	m.overviewComputed.Add(ctx, 1)
}
