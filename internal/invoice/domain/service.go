package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/civicgrid/civicbill/pkg/db/pagination"
)

// GenerateRequest asks for an invoice for one customer and period.
type GenerateRequest struct {
	CustomerID snowflake.ID
	// Period is the YYYY-MM billing month; empty means the current period.
	Period string
	// Provisional generates a draft preview for a period that is still
	// open. Final invoices require a closed period.
	Provisional bool
}

// ListRequest filters a customer's invoices.
type ListRequest struct {
	pagination.Pagination
	CustomerID snowflake.ID
	// Status filters by a single status; empty or "all" returns everything.
	Status string
}

// ListResponse is a page of invoices, newest first.
type ListResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// Service generates and manages invoices.
type Service interface {
	// Generate snapshots the period's usage into a durable invoice.
	// Generating twice for the same customer and closed period returns
	// the previously persisted invoice; exactly one row ever exists.
	Generate(ctx context.Context, req GenerateRequest) (*Invoice, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	GetByID(ctx context.Context, customerID snowflake.ID, invoiceID string) (*Invoice, error)
	// Finalize promotes a draft to pending once its period has closed.
	Finalize(ctx context.Context, invoiceID string) (*Invoice, error)
	// MarkPaid settles a pending or overdue invoice.
	MarkPaid(ctx context.Context, invoiceID string) (*Invoice, error)
	// Cancel voids a pending invoice.
	Cancel(ctx context.Context, invoiceID string) (*Invoice, error)
	// SweepOverdue flips pending invoices whose due date passed before now.
	SweepOverdue(ctx context.Context, now time.Time) (int64, error)
}

var (
	ErrInvalidPeriod           = errors.New("invalid_period")
	ErrInvalidCustomer         = errors.New("invalid_customer")
	ErrInvalidInvoiceID        = errors.New("invalid_invoice_id")
	ErrInvalidStatus           = errors.New("invalid_status")
	ErrPeriodNotClosed         = errors.New("period_not_closed")
	ErrPeriodClosed            = errors.New("period_closed")
	ErrProvisionalDisabled     = errors.New("provisional_disabled")
	ErrDuplicateInvoice        = errors.New("duplicate_invoice")
	ErrInvoiceNotFound         = errors.New("invoice_not_found")
	ErrInvoiceNotDraft         = errors.New("invoice_not_draft")
	ErrInvalidStatusTransition = errors.New("invalid_status_transition")
)
