// Package seed bootstraps demo data for local development environments.
package seed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/civicgrid/civicbill/internal/config"
	customerdomain "github.com/civicgrid/civicbill/internal/customer/domain"
	pricingdomain "github.com/civicgrid/civicbill/internal/pricing/domain"
	usagedomain "github.com/civicgrid/civicbill/internal/usage/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type demoCustomer struct {
	name  string
	email string
	key   string
	admin bool
}

var demoCustomers = []demoCustomer{
	{name: "City Operations", email: "ops@civicgrid.example", key: "demo-admin-key", admin: true},
	{name: "Transit Department", email: "transit@civicgrid.example", key: "demo-transit-key"},
	{name: "Parks Department", email: "parks@civicgrid.example", key: "demo-parks-key"},
}

// Run inserts demo customers and API keys when they are absent. Production
// environments skip seeding entirely.
func Run(ctx context.Context, db *gorm.DB, log *zap.Logger, cfg config.Config, genID *snowflake.Node) error {
	if cfg.IsProduction() {
		return nil
	}
	log = log.Named("seed")

	now := time.Now().UTC()
	for _, demo := range demoCustomers {
		var customer customerdomain.Customer
		err := db.WithContext(ctx).Where("email = ?", demo.email).First(&customer).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		customer = customerdomain.Customer{
			ID:        genID.Generate(),
			Name:      demo.name,
			Email:     demo.email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&customer).Error; err != nil {
			return err
		}

		key := customerdomain.APIKey{
			ID:         genID.Generate(),
			CustomerID: customer.ID,
			KeyHash:    HashKey(demo.key),
			Admin:      demo.admin,
			CreatedAt:  now,
		}
		if err := db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&key).Error; err != nil {
			return err
		}
		log.Info("demo customer seeded",
			zap.String("customer_id", customer.ID.String()),
			zap.String("name", customer.Name),
			zap.Bool("admin", demo.admin),
		)
	}

	return seedPrices(ctx, db, log, cfg, genID, now)
}

// seedPrices writes one explicit catalog row per service type at the default
// unit price. An already populated catalog is left untouched.
func seedPrices(ctx context.Context, db *gorm.DB, log *zap.Logger, cfg config.Config, genID *snowflake.Node, now time.Time) error {
	var count int64
	if err := db.WithContext(ctx).Model(&pricingdomain.PricePoint{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	loc := cfg.Location()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	for _, service := range usagedomain.ServiceTypes {
		point := pricingdomain.PricePoint{
			ID:             genID.Generate(),
			ServiceType:    service,
			Unit:           "booking",
			UnitPricePaise: cfg.Billing.DefaultUnitPricePaise,
			Currency:       cfg.Billing.Currency,
			EffectiveFrom:  monthStart,
			CreatedAt:      now,
		}
		if err := db.WithContext(ctx).Create(&point).Error; err != nil {
			return err
		}
	}
	log.Info("default pricing catalog seeded", zap.Int("services", len(usagedomain.ServiceTypes)))
	return nil
}

// HashKey derives the stored digest for an API key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
