package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/civicgrid/civicbill/internal/clock"
	"github.com/civicgrid/civicbill/internal/config"
	"github.com/civicgrid/civicbill/internal/events"
	"github.com/civicgrid/civicbill/internal/observability/metrics"
	pricingdomain "github.com/civicgrid/civicbill/internal/pricing/domain"
	usagedomain "github.com/civicgrid/civicbill/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Cfg     config.Config
	Clock   clock.Clock
	Store   usagedomain.EventStore
	Catalog pricingdomain.Catalog
	Outbox  *events.Outbox          `optional:"true"`
	Metrics *metrics.BillingMetrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID   *snowflake.Node
	cfg     config.Config
	clock   clock.Clock
	store   usagedomain.EventStore
	catalog pricingdomain.Catalog
	outbox  *events.Outbox
	metrics *metrics.BillingMetrics
}

func NewService(p ServiceParam) usagedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("usage.service"),

		genID:   p.GenID,
		cfg:     p.Cfg,
		clock:   p.Clock,
		store:   p.Store,
		catalog: p.Catalog,
		outbox:  p.Outbox,
		metrics: p.Metrics,
	}
}

// ComputeUsage aggregates a customer's events for one period into a priced
// summary. It is a pure read: no rows are written and repeated calls over the
// same event set produce identical summaries except LastUpdated.
func (s *Service) ComputeUsage(ctx context.Context, customerID snowflake.ID, period usagedomain.Period) (usagedomain.UsageSummary, error) {
	if customerID == 0 {
		return usagedomain.UsageSummary{}, usagedomain.ErrInvalidCustomer
	}

	loc := s.cfg.Location()
	start, end := period.Bounds(loc)

	events, err := s.store.ListEvents(ctx, customerID, start, end)
	if err != nil {
		return usagedomain.UsageSummary{}, fmt.Errorf("compute usage for %s %s: %w", customerID, period, err)
	}

	base := s.catalog.BasePrice()
	summary := usagedomain.UsageSummary{
		CustomerID:        customerID,
		Period:            period.String(),
		Unit:              base.Unit,
		PerUnitPricePaise: base.UnitPricePaise,
		Currency:          base.Currency,
		Events:            events,
		LastUpdated:       s.clock.Now().UTC(),
	}

	quantities := make(map[usagedomain.ServiceType]int64)
	for _, event := range events {
		summary.Count += event.Quantity
		quantities[event.ServiceType] += event.Quantity
	}

	// Prices resolve at period start, so later catalog changes never
	// retroactively alter a closed period's summary.
	for _, service := range usagedomain.ServiceTypes {
		quantity := quantities[service]
		if quantity == 0 {
			continue
		}
		price, err := s.catalog.PriceAt(ctx, service, start)
		if err != nil {
			return usagedomain.UsageSummary{}, fmt.Errorf("price lookup for %s %s: %w", service, period, err)
		}
		amount := quantity * price.UnitPricePaise
		summary.Services = append(summary.Services, usagedomain.ServiceUsage{
			ServiceType:    service,
			Quantity:       quantity,
			Unit:           price.Unit,
			UnitPricePaise: price.UnitPricePaise,
			AmountPaise:    amount,
		})
		summary.EstimatedTotalPaise += amount
	}

	return summary, nil
}

func (s *Service) Ingest(ctx context.Context, req usagedomain.CreateIngestRequest) (*usagedomain.UsageEvent, error) {
	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return nil, usagedomain.ErrInvalidCustomer
	}

	serviceType, ok := usagedomain.ParseServiceType(req.ServiceType)
	if !ok {
		return nil, usagedomain.ErrInvalidServiceType
	}

	urgency, ok := usagedomain.ParseUrgency(req.Urgency)
	if !ok {
		return nil, usagedomain.ErrInvalidUrgency
	}

	if req.Quantity <= 0 {
		return nil, usagedomain.ErrInvalidQuantity
	}

	bookingID := strings.TrimSpace(req.BookingID)
	if bookingID == "" {
		return nil, usagedomain.ErrInvalidBookingID
	}

	recordedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.RecordedAt))
	if err != nil {
		return nil, usagedomain.ErrInvalidRecordedAt
	}

	event := &usagedomain.UsageEvent{
		ID:             s.genID.Generate(),
		CustomerID:     customerID,
		ServiceType:    serviceType,
		Quantity:       req.Quantity,
		Urgency:        urgency,
		BookingID:      bookingID,
		IdempotencyKey: normalizeIdempotencyKey(req.IdempotencyKey),
		RecordedAt:     recordedAt.UTC(),
		CreatedAt:      s.clock.Now().UTC(),
	}
	if req.Metadata != nil {
		event.Metadata = datatypes.JSONMap(req.Metadata)
	}

	// The event row and its outbox record commit together. Replays skip
	// the outbox: the original insert already produced the record.
	var stored *usagedomain.UsageEvent
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := s.store.InsertTx(ctx, tx, event)
		if err != nil {
			return err
		}
		stored = inserted
		if stored.ID != event.ID || s.outbox == nil {
			return nil
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type:       events.EventUsageIngested,
			CustomerID: customerID,
			DedupeKey:  "usage:" + stored.ID.String(),
			Payload: map[string]any{
				"usage_event_id": stored.ID.String(),
				"customer_id":    customerID.String(),
				"service_type":   string(serviceType),
				"booking_id":     bookingID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncUsageIngested(ctx, string(serviceType))
	}
	return stored, nil
}

func normalizeIdempotencyKey(key *string) *string {
	if key == nil {
		return nil
	}
	value := strings.TrimSpace(*key)
	if value == "" {
		return nil
	}
	return &value
}
