// Package domain contains usage events and derived usage summaries.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ServiceType identifies a billable city service.
type ServiceType string

const (
	ServiceAmbulance ServiceType = "ambulance"
	ServiceFire      ServiceType = "fire"
	ServicePolice    ServiceType = "police"
	ServiceTraffic   ServiceType = "traffic"
)

// ServiceTypes lists the known services in their canonical order.
var ServiceTypes = []ServiceType{ServiceAmbulance, ServiceFire, ServicePolice, ServiceTraffic}

// ParseServiceType normalizes and validates a service type string.
func ParseServiceType(value string) (ServiceType, bool) {
	normalized := ServiceType(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range ServiceTypes {
		if normalized == known {
			return known, true
		}
	}
	return "", false
}

// Urgency classifies how a booking was dispatched. It does not affect pricing.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// ParseUrgency normalizes and validates an urgency string.
func ParseUrgency(value string) (Urgency, bool) {
	switch Urgency(strings.ToLower(strings.TrimSpace(value))) {
	case UrgencyLow:
		return UrgencyLow, true
	case UrgencyMedium:
		return UrgencyMedium, true
	case UrgencyHigh:
		return UrgencyHigh, true
	default:
		return "", false
	}
}

// UsageEvent stores one billable service booking. Events are append-only and
// retained for audit; they are never mutated or deleted.
type UsageEvent struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"event_id"`
	CustomerID     snowflake.ID      `gorm:"not null;index" json:"customer_id"`
	ServiceType    ServiceType       `gorm:"type:text;not null" json:"service_type"`
	Quantity       int64             `gorm:"not null" json:"quantity"`
	Urgency        Urgency           `gorm:"type:text;not null" json:"urgency"`
	BookingID      string            `gorm:"type:text;not null" json:"booking_id"`
	IdempotencyKey *string           `gorm:"type:text" json:"idempotency_key,omitempty"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	RecordedAt     time.Time         `gorm:"not null;index" json:"recorded_at"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (UsageEvent) TableName() string { return "usage_events" }

// ServiceUsage is the priced usage of a single service within a period.
type ServiceUsage struct {
	ServiceType    ServiceType `json:"service_type"`
	Quantity       int64       `json:"quantity"`
	Unit           string      `json:"unit"`
	UnitPricePaise int64       `json:"unit_price"`
	AmountPaise    int64       `json:"amount"`
}

// UsageSummary is the derived, read-only usage of one customer for one period.
// Recomputing from the same event set yields the same summary except LastUpdated.
type UsageSummary struct {
	CustomerID snowflake.ID `json:"customer_id"`
	Period     string       `json:"period"`
	// Count is the sum of event quantities across all services.
	Count int64  `json:"count"`
	Unit  string `json:"unit"`
	// PerUnitPricePaise is the base booking price used when no per-service
	// catalog price overrides it.
	PerUnitPricePaise   int64          `json:"per_unit_price"`
	EstimatedTotalPaise int64          `json:"estimated_total"`
	Currency            string         `json:"currency"`
	Services            []ServiceUsage `json:"services"`
	// Events are ordered most-recent-first for display; ordering never
	// affects the totals.
	Events      []UsageEvent `json:"events"`
	LastUpdated time.Time    `json:"last_updated"`
}
