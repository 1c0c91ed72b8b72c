package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/civicgrid/civicbill/internal/cache"
	"github.com/civicgrid/civicbill/internal/config"
	pricingdomain "github.com/civicgrid/civicbill/internal/pricing/domain"
	usagedomain "github.com/civicgrid/civicbill/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultUnit   = "booking"
	priceCacheTTL = 5 * time.Minute
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Cfg   config.Config
	Cache *cache.TTLCache[string, pricingdomain.PricePoint]
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	base  pricingdomain.PricePoint
	cache *cache.TTLCache[string, pricingdomain.PricePoint]
}

// NewPriceCache builds the catalog lookup cache.
func NewPriceCache() *cache.TTLCache[string, pricingdomain.PricePoint] {
	return cache.NewTTLCache[string, pricingdomain.PricePoint]()
}

func NewService(p ServiceParam) pricingdomain.Catalog {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("pricing.service"),
		genID: p.GenID,
		base: pricingdomain.PricePoint{
			Unit:           defaultUnit,
			UnitPricePaise: p.Cfg.Billing.DefaultUnitPricePaise,
			Currency:       p.Cfg.Billing.Currency,
		},
		cache: p.Cache,
	}
}

func (s *Service) BasePrice() pricingdomain.PricePoint {
	return s.base
}

func (s *Service) PriceAt(ctx context.Context, service usagedomain.ServiceType, at time.Time) (pricingdomain.PricePoint, error) {
	key := string(service) + "@" + at.UTC().Format(time.RFC3339)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}
	}

	var point pricingdomain.PricePoint
	err := s.db.WithContext(ctx).
		Where("service_type = ? AND effective_from <= ?", service, at).
		Order("effective_from DESC").
		Limit(1).
		Find(&point).Error
	if err != nil {
		return pricingdomain.PricePoint{}, err
	}

	if point.ID == 0 {
		point = s.base
		point.ServiceType = service
	}
	if s.cache != nil {
		s.cache.Set(key, point, priceCacheTTL)
	}
	return point, nil
}

func (s *Service) List(ctx context.Context) ([]pricingdomain.PricePoint, error) {
	var points []pricingdomain.PricePoint
	err := s.db.WithContext(ctx).
		Order("service_type ASC, effective_from DESC").
		Find(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}

func (s *Service) Put(ctx context.Context, req pricingdomain.PutPriceRequest) (*pricingdomain.PricePoint, error) {
	service, ok := usagedomain.ParseServiceType(req.ServiceType)
	if !ok {
		return nil, pricingdomain.ErrInvalidServiceType
	}
	if req.UnitPrice <= 0 {
		return nil, pricingdomain.ErrInvalidUnitPrice
	}
	if req.EffectiveFrom.IsZero() {
		return nil, pricingdomain.ErrInvalidEffectiveFrom
	}

	point := &pricingdomain.PricePoint{
		ID:             s.genID.Generate(),
		ServiceType:    service,
		Unit:           defaultUnit,
		UnitPricePaise: req.UnitPrice,
		Currency:       s.base.Currency,
		EffectiveFrom:  req.EffectiveFrom.UTC(),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(point).Error; err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Flush()
	}
	s.log.Info("price point added",
		zap.String("service_type", string(service)),
		zap.Int64("unit_price", req.UnitPrice),
		zap.Time("effective_from", point.EffectiveFrom),
	)
	return point, nil
}
