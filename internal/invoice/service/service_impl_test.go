package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/civicgrid/civicbill/internal/config"
	"github.com/civicgrid/civicbill/internal/events"
	invoicedomain "github.com/civicgrid/civicbill/internal/invoice/domain"
	ledgerservice "github.com/civicgrid/civicbill/internal/ledger/service"
	pricingservice "github.com/civicgrid/civicbill/internal/pricing/service"
	usagedomain "github.com/civicgrid/civicbill/internal/usage/domain"
	usageservice "github.com/civicgrid/civicbill/internal/usage/service"
	usagestore "github.com/civicgrid/civicbill/internal/usage/store"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// stepClock is a mutable test clock.
type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func setupInvoiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	statements := []string{
		`CREATE TABLE usage_events (
			id INTEGER PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			service_type TEXT NOT NULL,
			quantity BIGINT NOT NULL,
			urgency TEXT NOT NULL,
			booking_id TEXT NOT NULL,
			idempotency_key TEXT,
			metadata TEXT,
			recorded_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE (customer_id, idempotency_key)
		)`,
		`CREATE TABLE service_prices (
			id INTEGER PRIMARY KEY,
			service_type TEXT NOT NULL,
			unit TEXT NOT NULL,
			unit_price_paise BIGINT NOT NULL,
			currency TEXT NOT NULL,
			effective_from DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE invoices (
			id INTEGER PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			period TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			provisional BOOLEAN NOT NULL DEFAULT 0,
			billing_cycle TEXT NOT NULL DEFAULT 'monthly',
			currency TEXT NOT NULL,
			total_paise BIGINT NOT NULL,
			usage_snapshot TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			due_at DATETIME NOT NULL,
			finalized_at DATETIME,
			paid_at DATETIME,
			cancelled_at DATETIME
		)`,
		`CREATE UNIQUE INDEX idx_invoices_customer_period_final
			ON invoices (customer_id, period) WHERE provisional = 0`,
		`CREATE TABLE invoice_line_items (
			id INTEGER PRIMARY KEY,
			invoice_id BIGINT NOT NULL,
			position INTEGER NOT NULL,
			description TEXT NOT NULL,
			quantity BIGINT NOT NULL,
			unit TEXT NOT NULL,
			unit_price_paise BIGINT NOT NULL,
			amount_paise BIGINT NOT NULL
		)`,
		`CREATE TABLE ledger_accounts (
			id INTEGER PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE ledger_entries (
			id INTEGER PRIMARY KEY,
			source_type TEXT NOT NULL,
			source_id BIGINT NOT NULL,
			currency TEXT NOT NULL,
			occurred_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE ledger_entry_lines (
			id INTEGER PRIMARY KEY,
			ledger_entry_id BIGINT NOT NULL,
			account_id BIGINT NOT NULL,
			direction TEXT NOT NULL,
			amount BIGINT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE billing_events (
			id INTEGER PRIMARY KEY,
			customer_id BIGINT,
			event_type TEXT NOT NULL,
			payload TEXT,
			dedupe_key TEXT UNIQUE,
			published BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("ddl: %v", err)
		}
	}
	return db
}

type invoiceTestEnv struct {
	db       *gorm.DB
	clock    *stepClock
	usageSvc usagedomain.Service
	svc      invoicedomain.Service
	genID    *snowflake.Node
}

func newInvoiceTestEnv(t *testing.T) *invoiceTestEnv {
	t.Helper()
	db := setupInvoiceTestDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	cfg := config.Config{}
	cfg.Billing.Currency = "INR"
	cfg.Billing.Timezone = "UTC"
	cfg.Billing.DefaultUnitPricePaise = 50000
	cfg.Billing.DueDays = 30
	cfg.Billing.AllowProvisional = true
	cfg.Billing.StoreTimeout = 5 * time.Second

	log := zap.NewNop()
	clk := &stepClock{now: time.Date(2024, time.July, 10, 12, 0, 0, 0, time.UTC)}
	eventStore := usagestore.NewStore(usagestore.StoreParam{DB: db, Log: log, Cfg: cfg})
	catalog := pricingservice.NewService(pricingservice.ServiceParam{
		DB: db, Log: log, GenID: node, Cfg: cfg, Cache: pricingservice.NewPriceCache(),
	})
	usageSvc := usageservice.NewService(usageservice.ServiceParam{
		DB: db, Log: log, GenID: node, Cfg: cfg, Clock: clk,
		Store: eventStore, Catalog: catalog,
	})

	ledgerSvc := ledgerservice.NewService(ledgerservice.ServiceParam{DB: db, Log: log, GenID: node})
	svc := NewService(ServiceParam{
		DB:       db,
		Log:      log,
		GenID:    node,
		Cfg:      cfg,
		Clock:    clk,
		UsageSvc: usageSvc,
		Ledger:   ledgerSvc,
		Outbox:   events.NewOutbox(db, node),
	})
	return &invoiceTestEnv{db: db, clock: clk, usageSvc: usageSvc, svc: svc, genID: node}
}

func (env *invoiceTestEnv) seedEvent(t *testing.T, customerID snowflake.ID, service usagedomain.ServiceType, qty int64, recordedAt time.Time) {
	t.Helper()
	event := usagedomain.UsageEvent{
		ID:          env.genID.Generate(),
		CustomerID:  customerID,
		ServiceType: service,
		Quantity:    qty,
		Urgency:     usagedomain.UrgencyHigh,
		BookingID:   "bk-" + env.genID.Generate().String(),
		RecordedAt:  recordedAt,
		CreatedAt:   recordedAt,
	}
	if err := env.db.Create(&event).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
}

func TestGenerateInvoiceBuildsLineItemsPerService(t *testing.T) {
	env := newInvoiceTestEnv(t)
	ctx := context.Background()
	customerID := snowflake.ID(1001)

	june := time.Date(2024, time.June, 5, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		env.seedEvent(t, customerID, usagedomain.ServiceAmbulance, 1, june.Add(time.Duration(i)*time.Hour))
	}
	for i := 0; i < 2; i++ {
		env.seedEvent(t, customerID, usagedomain.ServiceFire, 1, june.AddDate(0, 0, i))
	}

	invoice, err := env.svc.Generate(ctx, invoicedomain.GenerateRequest{
		CustomerID: customerID,
		Period:     "2024-06",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if invoice.Status != invoicedomain.InvoiceStatusPending {
		t.Fatalf("expected pending, got %s", invoice.Status)
	}
	if invoice.Provisional {
		t.Fatal("final invoice marked provisional")
	}
	if len(invoice.LineItems) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(invoice.LineItems))
	}

	// Ambulance first in canonical service order: 3 bookings at 500 INR.
	ambulance := invoice.LineItems[0]
	if ambulance.Quantity != 3 || ambulance.AmountPaise != 150000 {
		t.Fatalf("unexpected ambulance line: qty=%d amount=%d", ambulance.Quantity, ambulance.AmountPaise)
	}
	fire := invoice.LineItems[1]
	if fire.Quantity != 2 || fire.AmountPaise != 100000 {
		t.Fatalf("unexpected fire line: qty=%d amount=%d", fire.Quantity, fire.AmountPaise)
	}
	if invoice.TotalPaise != 250000 {
		t.Fatalf("expected total 250000 paise, got %d", invoice.TotalPaise)
	}

	wantDue := env.clock.Now().AddDate(0, 0, 30)
	if !invoice.DueAt.Equal(wantDue) {
		t.Fatalf("expected due %v, got %v", wantDue, invoice.DueAt)
	}
	if len(invoice.UsageSnapshot) == 0 {
		t.Fatal("usage snapshot missing")
	}
}

func TestGenerateZeroUsageInvoice(t *testing.T) {
	env := newInvoiceTestEnv(t)

	invoice, err := env.svc.Generate(context.Background(), invoicedomain.GenerateRequest{
		CustomerID: 1002,
		Period:     "2024-06",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if invoice.TotalPaise != 0 {
		t.Fatalf("expected zero total, got %d", invoice.TotalPaise)
	}
	if len(invoice.LineItems) != 0 {
		t.Fatalf("expected no line items, got %d", len(invoice.LineItems))
	}
	if invoice.Status != invoicedomain.InvoiceStatusPending {
		t.Fatalf("expected pending, got %s", invoice.Status)
	}
}

func TestGenerateIsIdempotentPerPeriod(t *testing.T) {
	env := newInvoiceTestEnv(t)
	ctx := context.Background()
	customerID := snowflake.ID(1003)
	env.seedEvent(t, customerID, usagedomain.ServicePolice, 2, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))

	first, err := env.svc.Generate(ctx, invoicedomain.GenerateRequest{CustomerID: customerID, Period: "2024-06"})
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	second, err := env.svc.Generate(ctx, invoicedomain.GenerateRequest{CustomerID: customerID, Period: "2024-06"})
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same invoice, got %s and %s", first.ID, second.ID)
	}

	var count int64
	if err := env.db.Model(&invoicedomain.Invoice{}).
		Where("customer_id = ? AND period = ?", customerID, "2024-06").
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one invoice row, got %d", count)
	}
	if len(second.LineItems) != 1 {
		t.Fatalf("existing invoice returned without line items")
	}
}

func TestGenerateConcurrentDuplicatesCollapse(t *testing.T) {
	env := newInvoiceTestEnv(t)
	ctx := context.Background()
	customerID := snowflake.ID(1011)
	env.seedEvent(t, customerID, usagedomain.ServiceFire, 1, time.Date(2024, time.June, 8, 0, 0, 0, 0, time.UTC))

	// A single pooled connection serializes the two transactions the way a
	// second app instance would contend on the database.
	sqlDB, err := env.db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	var wg sync.WaitGroup
	results := make([]*invoicedomain.Invoice, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.svc.Generate(ctx, invoicedomain.GenerateRequest{
				CustomerID: customerID,
				Period:     "2024-06",
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
	}
	if results[0].ID != results[1].ID {
		t.Fatalf("expected both callers to get the same invoice, got %s and %s", results[0].ID, results[1].ID)
	}

	var count int64
	if err := env.db.Model(&invoicedomain.Invoice{}).
		Where("customer_id = ? AND period = ?", customerID, "2024-06").
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one invoice row, got %d", count)
	}
}

func TestGeneratePeriodGuards(t *testing.T) {
	env := newInvoiceTestEnv(t)
	ctx := context.Background()

	// Clock sits in July 2024: July is open, June is closed.
	_, err := env.svc.Generate(ctx, invoicedomain.GenerateRequest{CustomerID: 1, Period: "2024-07"})
	if !errors.Is(err, invoicedomain.ErrPeriodNotClosed) {
		t.Fatalf("expected period_not_closed, got %v", err)
	}

	_, err = env.svc.Generate(ctx, invoicedomain.GenerateRequest{CustomerID: 1, Period: "2024-06", Provisional: true})
	if !errors.Is(err, invoicedomain.ErrPeriodClosed) {
		t.Fatalf("expected period_closed, got %v", err)
	}

	_, err = env.svc.Generate(ctx, invoicedomain.GenerateRequest{CustomerID: 1, Period: "2024-13"})
	if !errors.Is(err, invoicedomain.ErrInvalidPeriod) {
		t.Fatalf("expected invalid_period, got %v", err)
	}

	_, err = env.svc.Generate(ctx, invoicedomain.GenerateRequest{Period: "2024-06"})
	if !errors.Is(err, invoicedomain.ErrInvalidCustomer) {
		t.Fatalf("expected invalid_customer, got %v", err)
	}
}

func TestGenerateProvisionalDraftIsReplaced(t *testing.T) {
	env := newInvoiceTestEnv(t)
	ctx := context.Background()
	customerID := snowflake.ID(1004)

	env.seedEvent(t, customerID, usagedomain.ServiceTraffic, 1, time.Date(2024, time.July, 2, 0, 0, 0, 0, time.UTC))

	first, err := env.svc.Generate(ctx, invoicedomain.GenerateRequest{CustomerID: customerID, Period: "2024-07", Provisional: true})
	if err != nil {
		t.Fatalf("first draft: %v", err)
	}
	if first.Status != invoicedomain.InvoiceStatusDraft {
		t.Fatalf("expected draft, got %s", first.Status)
	}

	env.seedEvent(t, customerID, usagedomain.ServiceTraffic, 1, time.Date(2024, time.July, 3, 0, 0, 0, 0, time.UTC))
	second, err := env.svc.Generate(ctx, invoicedomain.GenerateRequest{CustomerID: customerID, Period: "2024-07", Provisional: true})
	if err != nil {
		t.Fatalf("second draft: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("expected a fresh draft row")
	}
	if second.TotalPaise != 100000 {
		t.Fatalf("expected refreshed total 100000, got %d", second.TotalPaise)
	}

	var count int64
	if err := env.db.Model(&invoicedomain.Invoice{}).
		Where("customer_id = ? AND period = ? AND provisional = ?", customerID, "2024-07", true).
		Count(&count).Error; err != nil {
		t.Fatalf("count drafts: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single draft, got %d", count)
	}
}

func TestFinalizeDraftAfterPeriodCloses(t *testing.T) {
	env := newInvoiceTestEnv(t)
	ctx := context.Background()
	customerID := snowflake.ID(1005)
	env.seedEvent(t, customerID, usagedomain.ServiceAmbulance, 1, time.Date(2024, time.July, 4, 0, 0, 0, 0, time.UTC))

	draft, err := env.svc.Generate(ctx, invoicedomain.GenerateRequest{CustomerID: customerID, Period: "2024-07", Provisional: true})
	if err != nil {
		t.Fatalf("draft: %v", err)
	}

	_, err = env.svc.Finalize(ctx, draft.ID.String())
	if !errors.Is(err, invoicedomain.ErrPeriodNotClosed) {
		t.Fatalf("expected period_not_closed before month end, got %v", err)
	}

	env.clock.now = time.Date(2024, time.August, 1, 6, 0, 0, 0, time.UTC)
	final, err := env.svc.Finalize(ctx, draft.ID.String())
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if final.Status != invoicedomain.InvoiceStatusPending || final.Provisional {
		t.Fatalf("expected pending final invoice, got status=%s provisional=%v", final.Status, final.Provisional)
	}
	if final.FinalizedAt == nil {
		t.Fatal("finalized_at not set")
	}

	_, err = env.svc.Finalize(ctx, draft.ID.String())
	if !errors.Is(err, invoicedomain.ErrInvoiceNotDraft) {
		t.Fatalf("expected invoice_not_draft on repeat, got %v", err)
	}
}

func TestStatusTransitionsOnlyMoveForward(t *testing.T) {
	env := newInvoiceTestEnv(t)
	ctx := context.Background()
	customerID := snowflake.ID(1006)
	env.seedEvent(t, customerID, usagedomain.ServiceFire, 1, time.Date(2024, time.June, 20, 0, 0, 0, 0, time.UTC))

	invoice, err := env.svc.Generate(ctx, invoicedomain.GenerateRequest{CustomerID: customerID, Period: "2024-06"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	paid, err := env.svc.MarkPaid(ctx, invoice.ID.String())
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != invoicedomain.InvoiceStatusPaid || paid.PaidAt == nil {
		t.Fatalf("expected paid with timestamp, got %+v", paid)
	}

	if _, err := env.svc.Cancel(ctx, invoice.ID.String()); !errors.Is(err, invoicedomain.ErrInvalidStatusTransition) {
		t.Fatalf("expected invalid_status_transition cancelling a paid invoice, got %v", err)
	}
	if _, err := env.svc.MarkPaid(ctx, invoice.ID.String()); !errors.Is(err, invoicedomain.ErrInvalidStatusTransition) {
		t.Fatalf("expected invalid_status_transition paying twice, got %v", err)
	}
}

func TestSweepOverdueThenPay(t *testing.T) {
	env := newInvoiceTestEnv(t)
	ctx := context.Background()
	customerID := snowflake.ID(1007)
	env.seedEvent(t, customerID, usagedomain.ServicePolice, 1, time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC))

	invoice, err := env.svc.Generate(ctx, invoicedomain.GenerateRequest{CustomerID: customerID, Period: "2024-06"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	flipped, err := env.svc.SweepOverdue(ctx, invoice.DueAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if flipped != 1 {
		t.Fatalf("expected 1 overdue invoice, got %d", flipped)
	}

	var overdueEvents int64
	if err := env.db.Table("billing_events").
		Where("event_type = ? AND dedupe_key = ?", "invoice.overdue", "invoice.overdue:"+invoice.ID.String()).
		Count(&overdueEvents).Error; err != nil {
		t.Fatalf("count overdue events: %v", err)
	}
	if overdueEvents != 1 {
		t.Fatalf("expected an overdue outbox record, got %d", overdueEvents)
	}

	// A late payment still settles the invoice.
	paid, err := env.svc.MarkPaid(ctx, invoice.ID.String())
	if err != nil {
		t.Fatalf("mark paid after overdue: %v", err)
	}
	if paid.Status != invoicedomain.InvoiceStatusPaid {
		t.Fatalf("expected paid, got %s", paid.Status)
	}

	again, err := env.svc.SweepOverdue(ctx, invoice.DueAt.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected no further flips, got %d", again)
	}
}

func TestGeneratePostsBalancedLedgerEntry(t *testing.T) {
	env := newInvoiceTestEnv(t)
	ctx := context.Background()
	customerID := snowflake.ID(1008)
	env.seedEvent(t, customerID, usagedomain.ServiceAmbulance, 2, time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC))

	invoice, err := env.svc.Generate(ctx, invoicedomain.GenerateRequest{CustomerID: customerID, Period: "2024-06"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var entries int64
	if err := env.db.Table("ledger_entries").
		Where("source_type = ? AND source_id = ?", "invoice", invoice.ID).
		Count(&entries).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if entries != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", entries)
	}

	var sums []struct {
		Direction string
		Total     int64
	}
	err = env.db.Table("ledger_entry_lines").
		Select("direction, SUM(amount) AS total").
		Group("direction").
		Scan(&sums).Error
	if err != nil {
		t.Fatalf("sum lines: %v", err)
	}
	totals := map[string]int64{}
	for _, row := range sums {
		totals[row.Direction] = row.Total
	}
	if totals["debit"] != invoice.TotalPaise || totals["credit"] != invoice.TotalPaise {
		t.Fatalf("unbalanced ledger: debit=%d credit=%d total=%d", totals["debit"], totals["credit"], invoice.TotalPaise)
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	env := newInvoiceTestEnv(t)
	ctx := context.Background()
	customerID := snowflake.ID(1009)

	periods := []string{"2024-04", "2024-05", "2024-06"}
	for i, period := range periods {
		env.seedEvent(t, customerID, usagedomain.ServiceFire, 1,
			time.Date(2024, time.Month(4+i), 10, 0, 0, 0, 0, time.UTC))
		env.clock.now = env.clock.now.Add(time.Second)
		if _, err := env.svc.Generate(ctx, invoicedomain.GenerateRequest{CustomerID: customerID, Period: period}); err != nil {
			t.Fatalf("generate %s: %v", period, err)
		}
	}

	page, err := env.svc.List(ctx, invoicedomain.ListRequest{CustomerID: customerID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Invoices) != 3 {
		t.Fatalf("expected 3 invoices, got %d", len(page.Invoices))
	}
	// Newest first.
	if page.Invoices[0].Period != "2024-06" {
		t.Fatalf("expected newest first, got %s", page.Invoices[0].Period)
	}

	paid, err := env.svc.MarkPaid(ctx, page.Invoices[0].ID.String())
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	filtered, err := env.svc.List(ctx, invoicedomain.ListRequest{CustomerID: customerID, Status: "paid"})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if len(filtered.Invoices) != 1 || filtered.Invoices[0].ID != paid.ID {
		t.Fatalf("status filter returned wrong rows: %+v", filtered.Invoices)
	}

	if _, err := env.svc.List(ctx, invoicedomain.ListRequest{CustomerID: customerID, Status: "bogus"}); !errors.Is(err, invoicedomain.ErrInvalidStatus) {
		t.Fatalf("expected invalid_status, got %v", err)
	}
}

func TestGetByIDScopesToCustomer(t *testing.T) {
	env := newInvoiceTestEnv(t)
	ctx := context.Background()

	invoice, err := env.svc.Generate(ctx, invoicedomain.GenerateRequest{CustomerID: 1010, Period: "2024-06"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	got, err := env.svc.GetByID(ctx, 1010, invoice.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != invoice.ID {
		t.Fatalf("wrong invoice returned")
	}

	if _, err := env.svc.GetByID(ctx, 9999, invoice.ID.String()); !errors.Is(err, invoicedomain.ErrInvoiceNotFound) {
		t.Fatalf("expected invoice_not_found for another customer, got %v", err)
	}
	if _, err := env.svc.GetByID(ctx, 1010, "not-a-snowflake"); !errors.Is(err, invoicedomain.ErrInvalidInvoiceID) {
		t.Fatalf("expected invalid_invoice_id, got %v", err)
	}
}
