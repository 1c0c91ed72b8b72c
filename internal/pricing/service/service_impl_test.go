package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/civicgrid/civicbill/internal/config"
	pricingdomain "github.com/civicgrid/civicbill/internal/pricing/domain"
	usagedomain "github.com/civicgrid/civicbill/internal/usage/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPricingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE service_prices (
			id INTEGER PRIMARY KEY,
			service_type TEXT NOT NULL,
			unit TEXT NOT NULL,
			unit_price_paise BIGINT NOT NULL,
			currency TEXT NOT NULL,
			effective_from DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	).Error; err != nil {
		t.Fatalf("create service_prices: %v", err)
	}
	return db
}

func newTestCatalog(t *testing.T, db *gorm.DB) pricingdomain.Catalog {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	cfg := config.Config{}
	cfg.Billing.Currency = "INR"
	cfg.Billing.DefaultUnitPricePaise = 50000
	return NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Cfg:   cfg,
		Cache: NewPriceCache(),
	})
}

func TestPriceAtFallsBackToBase(t *testing.T) {
	db := setupPricingTestDB(t)
	catalog := newTestCatalog(t, db)

	point, err := catalog.PriceAt(context.Background(), usagedomain.ServiceAmbulance, time.Now())
	if err != nil {
		t.Fatalf("price at: %v", err)
	}
	if point.UnitPricePaise != 50000 {
		t.Fatalf("expected base price 50000, got %d", point.UnitPricePaise)
	}
	if point.Currency != "INR" || point.Unit != "booking" {
		t.Fatalf("unexpected base point %+v", point)
	}
}

func TestPriceAtPicksPriceInForce(t *testing.T) {
	db := setupPricingTestDB(t)
	catalog := newTestCatalog(t, db)
	ctx := context.Background()

	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	jul := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

	if _, err := catalog.Put(ctx, pricingdomain.PutPriceRequest{
		ServiceType: "fire", UnitPrice: 40000, EffectiveFrom: jan,
	}); err != nil {
		t.Fatalf("put jan price: %v", err)
	}
	if _, err := catalog.Put(ctx, pricingdomain.PutPriceRequest{
		ServiceType: "fire", UnitPrice: 60000, EffectiveFrom: jul,
	}); err != nil {
		t.Fatalf("put jul price: %v", err)
	}

	// June period start resolves to the January price; the July change
	// must not reach back into June.
	june := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	point, err := catalog.PriceAt(ctx, usagedomain.ServiceFire, june)
	if err != nil {
		t.Fatalf("price at june: %v", err)
	}
	if point.UnitPricePaise != 40000 {
		t.Fatalf("expected 40000 in june, got %d", point.UnitPricePaise)
	}

	august := time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)
	point, err = catalog.PriceAt(ctx, usagedomain.ServiceFire, august)
	if err != nil {
		t.Fatalf("price at august: %v", err)
	}
	if point.UnitPricePaise != 60000 {
		t.Fatalf("expected 60000 in august, got %d", point.UnitPricePaise)
	}
}

func TestPutRejectsBadInput(t *testing.T) {
	db := setupPricingTestDB(t)
	catalog := newTestCatalog(t, db)
	ctx := context.Background()

	if _, err := catalog.Put(ctx, pricingdomain.PutPriceRequest{ServiceType: "submarine", UnitPrice: 100, EffectiveFrom: time.Now()}); err != pricingdomain.ErrInvalidServiceType {
		t.Fatalf("expected invalid_service_type, got %v", err)
	}
	if _, err := catalog.Put(ctx, pricingdomain.PutPriceRequest{ServiceType: "fire", UnitPrice: 0, EffectiveFrom: time.Now()}); err != pricingdomain.ErrInvalidUnitPrice {
		t.Fatalf("expected invalid_unit_price, got %v", err)
	}
	if _, err := catalog.Put(ctx, pricingdomain.PutPriceRequest{ServiceType: "fire", UnitPrice: 100}); err != pricingdomain.ErrInvalidEffectiveFrom {
		t.Fatalf("expected invalid_effective_from, got %v", err)
	}
}
