package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/civicgrid/civicbill/internal/clock"
	"github.com/civicgrid/civicbill/internal/config"
	invoicedomain "github.com/civicgrid/civicbill/internal/invoice/domain"
	"github.com/civicgrid/civicbill/internal/observability/metrics"
	overviewdomain "github.com/civicgrid/civicbill/internal/overview/domain"
	usagedomain "github.com/civicgrid/civicbill/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultTopN = 10

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	Clock    clock.Clock
	Store    usagedomain.EventStore
	UsageSvc usagedomain.Service
	Metrics  *metrics.BillingMetrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	cfg      config.Config
	clock    clock.Clock
	store    usagedomain.EventStore
	usageSvc usagedomain.Service
	metrics  *metrics.BillingMetrics
}

func NewService(p ServiceParam) overviewdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("overview.service"),

		cfg:      p.Cfg,
		clock:    p.Clock,
		store:    p.Store,
		usageSvc: p.UsageSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) ComputeOverview(ctx context.Context, req overviewdomain.ComputeRequest) (*overviewdomain.Overview, error) {
	loc := s.cfg.Location()
	now := s.clock.Now()

	period := usagedomain.PeriodOf(now, loc)
	if strings.TrimSpace(req.Period) != "" {
		parsed, err := usagedomain.ParsePeriod(strings.TrimSpace(req.Period))
		if err != nil {
			return nil, overviewdomain.ErrInvalidPeriod
		}
		period = parsed
	}

	topN := req.TopN
	if topN <= 0 {
		topN = defaultTopN
	}

	start, end := period.Bounds(loc)
	customerIDs, err := s.store.ListCustomersWithEvents(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: list customers: %v", overviewdomain.ErrPartialAggregation, err)
	}

	overview := &overviewdomain.Overview{
		Period:        period.String(),
		Currency:      s.cfg.Billing.Currency,
		CustomerCount: len(customerIDs),
		GeneratedAt:   now.UTC(),
	}

	quantities := make(map[usagedomain.ServiceType]int64)
	amounts := make(map[usagedomain.ServiceType]int64)
	totals := make([]overviewdomain.CustomerTotal, 0, len(customerIDs))

	// One customer failing poisons the whole overview. Partial totals are
	// worse than no totals for an admin cross-check.
	for _, customerID := range customerIDs {
		summary, err := s.usageSvc.ComputeUsage(ctx, customerID, period)
		if err != nil {
			return nil, fmt.Errorf("%w: customer %s: %v", overviewdomain.ErrPartialAggregation, customerID, err)
		}

		overview.EventCount += summary.Count
		overview.TotalPaise += summary.EstimatedTotalPaise
		for _, usage := range summary.Services {
			quantities[usage.ServiceType] += usage.Quantity
			amounts[usage.ServiceType] += usage.AmountPaise
		}
		totals = append(totals, overviewdomain.CustomerTotal{
			CustomerID: customerID,
			Count:      summary.Count,
			TotalPaise: summary.EstimatedTotalPaise,
		})
	}

	// Percentages are event-count shares, not revenue shares, so a mixed
	// catalog never skews the breakdown toward the pricier services.
	for _, service := range usagedomain.ServiceTypes {
		amount := amounts[service]
		if quantities[service] == 0 && amount == 0 {
			continue
		}
		share := 0.0
		if overview.EventCount > 0 {
			share = float64(quantities[service]) / float64(overview.EventCount) * 100
		}
		overview.Breakdown = append(overview.Breakdown, overviewdomain.ServiceBreakdown{
			ServiceType: service,
			Quantity:    quantities[service],
			AmountPaise: amount,
			Percent:     share,
		})
	}

	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].TotalPaise != totals[j].TotalPaise {
			return totals[i].TotalPaise > totals[j].TotalPaise
		}
		return totals[i].CustomerID < totals[j].CustomerID
	})
	if len(totals) > topN {
		totals = totals[:topN]
	}
	overview.TopCustomers = totals

	statusCounts, err := s.countInvoiceStatuses(ctx, period.String())
	if err != nil {
		return nil, fmt.Errorf("%w: invoice statuses: %v", overviewdomain.ErrPartialAggregation, err)
	}
	overview.InvoiceStatusCounts = statusCounts

	if s.metrics != nil {
		s.metrics.IncOverviewComputed(ctx)
	}
	s.log.Debug("overview computed",
		zap.String("period", overview.Period),
		zap.Int("customers", overview.CustomerCount),
		zap.Int64("total", overview.TotalPaise),
	)
	return overview, nil
}

func (s *Service) countInvoiceStatuses(ctx context.Context, period string) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Select("status, COUNT(*) AS count").
		Where("period = ?", period).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
