package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/civicgrid/civicbill/internal/clock"
	"github.com/civicgrid/civicbill/internal/config"
	"github.com/civicgrid/civicbill/internal/events"
	invoicedomain "github.com/civicgrid/civicbill/internal/invoice/domain"
	ledgerdomain "github.com/civicgrid/civicbill/internal/ledger/domain"
	ledgerservice "github.com/civicgrid/civicbill/internal/ledger/service"
	"github.com/civicgrid/civicbill/internal/observability/metrics"
	usagedomain "github.com/civicgrid/civicbill/internal/usage/domain"
	"github.com/civicgrid/civicbill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Cfg      config.Config
	Clock    clock.Clock
	UsageSvc usagedomain.Service
	Ledger   ledgerdomain.Service
	Outbox   *events.Outbox          `optional:"true"`
	Metrics  *metrics.BillingMetrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID    *snowflake.Node
	cfg      config.Config
	clock    clock.Clock
	usageSvc usagedomain.Service
	ledger   ledgerdomain.Service
	outbox   *events.Outbox
	metrics  *metrics.BillingMetrics
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("invoice.service"),

		genID:    p.GenID,
		cfg:      p.Cfg,
		clock:    p.Clock,
		usageSvc: p.UsageSvc,
		ledger:   p.Ledger,
		outbox:   p.Outbox,
		metrics:  p.Metrics,
	}
}

func (s *Service) Generate(ctx context.Context, req invoicedomain.GenerateRequest) (*invoicedomain.Invoice, error) {
	if req.CustomerID == 0 {
		return nil, invoicedomain.ErrInvalidCustomer
	}

	loc := s.cfg.Location()
	now := s.clock.Now()

	period := usagedomain.PeriodOf(now, loc)
	if strings.TrimSpace(req.Period) != "" {
		parsed, err := usagedomain.ParsePeriod(strings.TrimSpace(req.Period))
		if err != nil {
			return nil, invoicedomain.ErrInvalidPeriod
		}
		period = parsed
	}

	closed := period.ClosedAt(now, loc)
	if req.Provisional {
		if !s.cfg.Billing.AllowProvisional {
			return nil, invoicedomain.ErrProvisionalDisabled
		}
		if closed {
			return nil, invoicedomain.ErrPeriodClosed
		}
	} else if !closed {
		return nil, invoicedomain.ErrPeriodNotClosed
	}

	summary, err := s.usageSvc.ComputeUsage(ctx, req.CustomerID, period)
	if err != nil {
		return nil, err
	}

	invoice, err := s.buildInvoice(req.CustomerID, period.String(), req.Provisional, now, summary)
	if err != nil {
		return nil, err
	}

	var existing *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.Provisional {
			// A draft is a preview: regeneration replaces it wholesale.
			if err := s.deleteDraft(ctx, tx, req.CustomerID, invoice.Period); err != nil {
				return err
			}
		}

		result := tx.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Omit("LineItems").
			Create(invoice)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Lost the uniqueness race or the invoice already exists:
			// the first final invoice for a closed period wins.
			loaded, err := s.loadFinal(ctx, tx, req.CustomerID, invoice.Period)
			if err != nil {
				return err
			}
			if loaded == nil {
				return invoicedomain.ErrDuplicateInvoice
			}
			existing = loaded
			return nil
		}

		for _, item := range invoice.LineItems {
			if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
				return err
			}
		}

		if !invoice.Provisional {
			if err := s.postLedgerEntry(ctx, tx, invoice); err != nil {
				return err
			}
		}

		if s.outbox != nil {
			payload := events.InvoicePayload{
				InvoiceID:  invoice.ID.String(),
				CustomerID: invoice.CustomerID.String(),
				Period:     invoice.Period,
			}
			if err := s.outbox.PublishTx(ctx, tx, events.Event{
				Type:       events.EventInvoiceGenerated,
				CustomerID: invoice.CustomerID,
				DedupeKey:  "invoice.generated:" + invoice.ID.String(),
				Payload:    payload.ToMap(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return existing, nil
	}

	if s.metrics != nil {
		s.metrics.IncInvoiceGenerated(ctx, invoice.Provisional)
	}
	s.log.Info("invoice generated",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("customer_id", invoice.CustomerID.String()),
		zap.String("period", invoice.Period),
		zap.Bool("provisional", invoice.Provisional),
		zap.Int64("total", invoice.TotalPaise),
	)
	return invoice, nil
}

// buildInvoice assembles the durable record from a usage snapshot. One line
// item per service type present; the invoice total must equal both the sum of
// line amounts and the summary's estimated total.
func (s *Service) buildInvoice(customerID snowflake.ID, period string, provisional bool, now time.Time, summary usagedomain.UsageSummary) (*invoicedomain.Invoice, error) {
	snapshot, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}

	status := invoicedomain.InvoiceStatusPending
	if provisional {
		status = invoicedomain.InvoiceStatusDraft
	}

	dueDays := s.cfg.Billing.DueDays
	if dueDays <= 0 {
		dueDays = 30
	}

	invoice := &invoicedomain.Invoice{
		ID:            s.genID.Generate(),
		CustomerID:    customerID,
		Period:        period,
		Status:        status,
		Provisional:   provisional,
		BillingCycle:  invoicedomain.BillingCycleMonthly,
		Currency:      summary.Currency,
		UsageSnapshot: datatypes.JSON(snapshot),
		CreatedAt:     now,
		UpdatedAt:     now,
		DueAt:         now.AddDate(0, 0, dueDays),
	}

	for i, usage := range summary.Services {
		item := invoicedomain.LineItem{
			ID:             s.genID.Generate(),
			InvoiceID:      invoice.ID,
			Position:       i,
			Description:    fmt.Sprintf("%s bookings", usage.ServiceType),
			Quantity:       usage.Quantity,
			Unit:           usage.Unit,
			UnitPricePaise: usage.UnitPricePaise,
			AmountPaise:    usage.AmountPaise,
		}
		invoice.LineItems = append(invoice.LineItems, item)
		invoice.TotalPaise += item.AmountPaise
	}

	if invoice.TotalPaise != summary.EstimatedTotalPaise {
		return nil, fmt.Errorf("invoice total %d does not match usage summary %d", invoice.TotalPaise, summary.EstimatedTotalPaise)
	}
	return invoice, nil
}

func (s *Service) postLedgerEntry(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	if invoice.TotalPaise == 0 {
		return nil
	}

	receivableID, err := ledgerservice.EnsureAccount(ctx, tx, s.genID, ledgerdomain.AccountCodeAccountsReceivable, "Accounts Receivable")
	if err != nil {
		return err
	}
	revenueID, err := ledgerservice.EnsureAccount(ctx, tx, s.genID, ledgerdomain.AccountCodeRevenue, "Revenue")
	if err != nil {
		return err
	}

	lines := []ledgerdomain.EntryLine{
		{AccountID: receivableID, Direction: ledgerdomain.DirectionDebit, Amount: invoice.TotalPaise},
		{AccountID: revenueID, Direction: ledgerdomain.DirectionCredit, Amount: invoice.TotalPaise},
	}
	return s.ledger.CreateEntryTx(ctx, tx,
		ledgerdomain.SourceTypeInvoice, invoice.ID, invoice.Currency, invoice.CreatedAt, lines)
}

func (s *Service) deleteDraft(ctx context.Context, tx *gorm.DB, customerID snowflake.ID, period string) error {
	var draftIDs []snowflake.ID
	err := tx.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("customer_id = ? AND period = ? AND provisional = ?", customerID, period, true).
		Pluck("id", &draftIDs).Error
	if err != nil {
		return err
	}
	if len(draftIDs) == 0 {
		return nil
	}
	if err := tx.WithContext(ctx).
		Where("invoice_id IN ?", draftIDs).
		Delete(&invoicedomain.LineItem{}).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).
		Where("id IN ?", draftIDs).
		Delete(&invoicedomain.Invoice{}).Error
}

func (s *Service) loadFinal(ctx context.Context, tx *gorm.DB, customerID snowflake.ID, period string) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := tx.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("customer_id = ? AND period = ? AND provisional = ?", customerID, period, false).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListRequest) (invoicedomain.ListResponse, error) {
	if req.CustomerID == 0 {
		return invoicedomain.ListResponse{}, invoicedomain.ErrInvalidCustomer
	}

	status := strings.TrimSpace(req.Status)
	if status != "" && status != "all" {
		if _, ok := invoicedomain.ParseStatus(status); !ok {
			return invoicedomain.ListResponse{}, invoicedomain.ErrInvalidStatus
		}
	}

	pageSize := int32(req.PageSize)
	if pageSize <= 0 {
		pageSize = 50
	}

	query := s.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("customer_id = ?", req.CustomerID)
	if status != "" && status != "all" {
		query = query.Where("status = ?", status)
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return invoicedomain.ListResponse{}, pagination.ErrInvalidCursor
		}
		at, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return invoicedomain.ListResponse{}, pagination.ErrInvalidCursor
		}
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			at, at, cursor.ID,
		)
	}

	var invoices []invoicedomain.Invoice
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(int(pageSize) + 1).
		Find(&invoices).Error
	if err != nil {
		return invoicedomain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(invoices, pageSize, func(record invoicedomain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        record.ID.String(),
			CreatedAt: record.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(invoices) > int(pageSize) {
		invoices = invoices[:pageSize]
	}

	resp := invoicedomain.ListResponse{Invoices: invoices}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, customerID snowflake.ID, invoiceID string) (*invoicedomain.Invoice, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(invoiceID))
	if err != nil || id == 0 {
		return nil, invoicedomain.ErrInvalidInvoiceID
	}

	query := s.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id)
	if customerID != 0 {
		query = query.Where("customer_id = ?", customerID)
	}

	var invoice invoicedomain.Invoice
	if err := query.First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicedomain.ErrInvoiceNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// Finalize promotes a draft to a pending invoice once its period has closed.
// The draft's line items and snapshot are kept as generated; finalizing only
// moves the status forward and posts the receivable to the ledger.
func (s *Service) Finalize(ctx context.Context, invoiceID string) (*invoicedomain.Invoice, error) {
	invoice, err := s.GetByID(ctx, 0, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != invoicedomain.InvoiceStatusDraft {
		return nil, invoicedomain.ErrInvoiceNotDraft
	}

	period, err := usagedomain.ParsePeriod(invoice.Period)
	if err != nil {
		return nil, invoicedomain.ErrInvalidPeriod
	}
	now := s.clock.Now()
	if !period.ClosedAt(now, s.cfg.Location()) {
		return nil, invoicedomain.ErrPeriodNotClosed
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.WithContext(ctx).
			Model(&invoicedomain.Invoice{}).
			Where("id = ? AND status = ?", invoice.ID, invoicedomain.InvoiceStatusDraft).
			Updates(map[string]any{
				"status":       invoicedomain.InvoiceStatusPending,
				"provisional":  false,
				"finalized_at": now,
				"updated_at":   now,
			})
		if result.Error != nil {
			// Flipping provisional collides with an existing final
			// invoice for the same customer and period.
			if isUniqueViolation(result.Error) {
				return invoicedomain.ErrDuplicateInvoice
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invoicedomain.ErrInvoiceNotDraft
		}

		invoice.Status = invoicedomain.InvoiceStatusPending
		invoice.Provisional = false
		invoice.FinalizedAt = &now

		if err := s.postLedgerEntry(ctx, tx, invoice); err != nil {
			return err
		}
		if s.outbox != nil {
			payload := events.InvoicePayload{
				InvoiceID:  invoice.ID.String(),
				CustomerID: invoice.CustomerID.String(),
				Period:     invoice.Period,
			}
			if err := s.outbox.PublishTx(ctx, tx, events.Event{
				Type:       events.EventInvoiceFinalized,
				CustomerID: invoice.CustomerID,
				DedupeKey:  "invoice.finalized:" + invoice.ID.String(),
				Payload:    payload.ToMap(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncInvoiceFinalized(ctx)
	}
	return invoice, nil
}

func (s *Service) MarkPaid(ctx context.Context, invoiceID string) (*invoicedomain.Invoice, error) {
	return s.transition(ctx, invoiceID, invoicedomain.InvoiceStatusPaid, events.EventInvoicePaid,
		invoicedomain.InvoiceStatusPending, invoicedomain.InvoiceStatusOverdue)
}

func (s *Service) Cancel(ctx context.Context, invoiceID string) (*invoicedomain.Invoice, error) {
	return s.transition(ctx, invoiceID, invoicedomain.InvoiceStatusCancelled, events.EventInvoiceCancelled,
		invoicedomain.InvoiceStatusPending)
}

// transition moves an invoice's status forward. The guard is enforced in the
// UPDATE itself so concurrent transitions cannot move a status backward.
func (s *Service) transition(ctx context.Context, invoiceID string, target invoicedomain.InvoiceStatus, eventType string, from ...invoicedomain.InvoiceStatus) (*invoicedomain.Invoice, error) {
	invoice, err := s.GetByID(ctx, 0, invoiceID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	updates := map[string]any{
		"status":     target,
		"updated_at": now,
	}
	switch target {
	case invoicedomain.InvoiceStatusPaid:
		updates["paid_at"] = now
	case invoicedomain.InvoiceStatusCancelled:
		updates["cancelled_at"] = now
	}

	result := s.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("id = ? AND status IN ?", invoice.ID, statusStrings(from)).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, invoicedomain.ErrInvalidStatusTransition
	}

	invoice.Status = target
	switch target {
	case invoicedomain.InvoiceStatusPaid:
		invoice.PaidAt = &now
	case invoicedomain.InvoiceStatusCancelled:
		invoice.CancelledAt = &now
	}

	if s.outbox != nil {
		payload := events.InvoicePayload{
			InvoiceID:  invoice.ID.String(),
			CustomerID: invoice.CustomerID.String(),
			Period:     invoice.Period,
		}
		_ = s.outbox.Publish(ctx, events.Event{
			Type:       eventType,
			CustomerID: invoice.CustomerID,
			DedupeKey:  eventType + ":" + invoice.ID.String(),
			Payload:    payload.ToMap(),
		})
	}
	return invoice, nil
}

func (s *Service) SweepOverdue(ctx context.Context, now time.Time) (int64, error) {
	var swept []invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.WithContext(ctx).
			Select("id", "customer_id", "period").
			Where("status = ? AND due_at < ?", invoicedomain.InvoiceStatusPending, now).
			Find(&swept).Error
		if err != nil {
			return err
		}
		if len(swept) == 0 {
			return nil
		}

		ids := make([]snowflake.ID, 0, len(swept))
		for _, invoice := range swept {
			ids = append(ids, invoice.ID)
		}
		err = tx.WithContext(ctx).
			Model(&invoicedomain.Invoice{}).
			Where("id IN ? AND status = ?", ids, invoicedomain.InvoiceStatusPending).
			Updates(map[string]any{
				"status":     invoicedomain.InvoiceStatusOverdue,
				"updated_at": now,
			}).Error
		if err != nil {
			return err
		}

		if s.outbox == nil {
			return nil
		}
		for _, invoice := range swept {
			payload := events.InvoicePayload{
				InvoiceID:  invoice.ID.String(),
				CustomerID: invoice.CustomerID.String(),
				Period:     invoice.Period,
			}
			if err := s.outbox.PublishTx(ctx, tx, events.Event{
				Type:       events.EventInvoiceOverdue,
				CustomerID: invoice.CustomerID,
				DedupeKey:  "invoice.overdue:" + invoice.ID.String(),
				Payload:    payload.ToMap(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(swept) > 0 {
		s.log.Info("pending invoices swept to overdue", zap.Int64("count", int64(len(swept))))
	}
	return int64(len(swept)), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := err.Error()
	return strings.Contains(message, "duplicate key") || strings.Contains(message, "UNIQUE constraint")
}

func statusStrings(statuses []invoicedomain.InvoiceStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}
