// Package events stores billing events in a transactional outbox.
package events

// Billing event types published by the core.
const (
	EventUsageIngested    = "usage.ingested"
	EventInvoiceGenerated = "invoice.generated"
	EventInvoiceFinalized = "invoice.finalized"
	EventInvoicePaid      = "invoice.paid"
	EventInvoiceOverdue   = "invoice.overdue"
	EventInvoiceCancelled = "invoice.cancelled"
)

// InvoicePayload is the minimal rollup data for invoice events.
type InvoicePayload struct {
	InvoiceID  string `json:"invoice_id"`
	CustomerID string `json:"customer_id"`
	Period     string `json:"period"`
}

// ToMap converts the payload into an outbox-friendly map.
func (p InvoicePayload) ToMap() map[string]any {
	return map[string]any{
		"invoice_id":  p.InvoiceID,
		"customer_id": p.CustomerID,
		"period":      p.Period,
	}
}
