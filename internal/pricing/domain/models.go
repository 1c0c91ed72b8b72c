// Package domain contains the effective-dated service pricing catalog.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	usagedomain "github.com/civicgrid/civicbill/internal/usage/domain"
)

// PricePoint is one per-service unit price, effective from a given instant.
// Catalog updates append new points; existing points are never rewritten, so
// closed periods keep the price that was in force at their start.
type PricePoint struct {
	ID             snowflake.ID            `gorm:"primaryKey" json:"id"`
	ServiceType    usagedomain.ServiceType `gorm:"type:text;not null;index" json:"service_type"`
	Unit           string                  `gorm:"type:text;not null" json:"unit"`
	UnitPricePaise int64                   `gorm:"not null" json:"unit_price"`
	Currency       string                  `gorm:"type:text;not null" json:"currency"`
	EffectiveFrom  time.Time               `gorm:"not null;index" json:"effective_from"`
	CreatedAt      time.Time               `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (PricePoint) TableName() string { return "service_prices" }

// PutPriceRequest appends a new price point.
type PutPriceRequest struct {
	ServiceType   string    `json:"service_type"`
	UnitPrice     int64     `json:"unit_price"`
	EffectiveFrom time.Time `json:"effective_from"`
}

// Catalog resolves unit prices for billing.
type Catalog interface {
	// PriceAt returns the price in force for a service at the given
	// instant, falling back to the configured base price when the catalog
	// has no matching point.
	PriceAt(ctx context.Context, service usagedomain.ServiceType, at time.Time) (PricePoint, error)
	// BasePrice returns the configured fallback price.
	BasePrice() PricePoint
	List(ctx context.Context) ([]PricePoint, error)
	Put(ctx context.Context, req PutPriceRequest) (*PricePoint, error)
}

var (
	ErrInvalidServiceType   = errors.New("invalid_service_type")
	ErrInvalidUnitPrice     = errors.New("invalid_unit_price")
	ErrInvalidEffectiveFrom = errors.New("invalid_effective_from")
)
