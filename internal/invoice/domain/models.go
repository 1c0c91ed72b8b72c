// Package domain contains the invoice ledger entities and service contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// InvoiceStatus tracks an invoice through its life. Transitions only move
// forward: draft → pending → paid | overdue | cancelled.
type InvoiceStatus string

const (
	// InvoiceStatusDraft marks a provisional preview generated for a
	// period that is still open. Drafts carry no payment obligation.
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// ParseStatus validates a status filter value.
func ParseStatus(value string) (InvoiceStatus, bool) {
	switch InvoiceStatus(value) {
	case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusCancelled:
		return InvoiceStatus(value), true
	default:
		return "", false
	}
}

const BillingCycleMonthly = "monthly"

// Invoice is one customer's bill for one period. Line items and the usage
// snapshot are written once at creation and never mutated; corrections take
// a new invoice. Only Status and its timestamps change afterwards.
type Invoice struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"invoice_id"`
	CustomerID  snowflake.ID  `gorm:"not null;index" json:"customer_id"`
	Period      string        `gorm:"type:text;not null;index" json:"period"`
	Status      InvoiceStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	Provisional bool          `gorm:"not null;default:false" json:"provisional"`

	BillingCycle string `gorm:"type:text;not null;default:'monthly'" json:"billing_cycle"`
	Currency     string `gorm:"type:text;not null" json:"currency"`
	// TotalPaise equals the sum of line item amounts, in minor units.
	TotalPaise int64 `gorm:"not null" json:"estimated_total"`

	LineItems []LineItem `gorm:"foreignKey:InvoiceID" json:"line_items"`
	// UsageSnapshot is the UsageSummary captured at generation time.
	UsageSnapshot datatypes.JSON `gorm:"type:jsonb" json:"usage_summary"`

	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"-"`
	DueAt       time.Time  `gorm:"not null" json:"due_date"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// LineItem prices one service type's usage on an invoice.
type LineItem struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"-"`
	InvoiceID   snowflake.ID `gorm:"not null;index" json:"-"`
	Position    int          `gorm:"not null" json:"-"`
	Description string       `gorm:"type:text;not null" json:"description"`
	Quantity    int64        `gorm:"not null" json:"quantity"`
	Unit        string       `gorm:"type:text;not null" json:"unit"`
	// AmountPaise = Quantity × UnitPricePaise.
	UnitPricePaise int64 `gorm:"not null" json:"unit_price"`
	AmountPaise    int64 `gorm:"not null" json:"amount"`
}

// TableName sets the database table name.
func (LineItem) TableName() string { return "invoice_line_items" }
