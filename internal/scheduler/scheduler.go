// Package scheduler drives the recurring billing work: closing out the
// previous period into final invoices and sweeping unpaid invoices to overdue.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/civicgrid/civicbill/internal/clock"
	"github.com/civicgrid/civicbill/internal/config"
	invoicedomain "github.com/civicgrid/civicbill/internal/invoice/domain"
	usagedomain "github.com/civicgrid/civicbill/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type WorkerParam struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	Clock      clock.Clock
	Store      usagedomain.EventStore
	InvoiceSvc invoicedomain.Service
}

// Worker polls on a fixed interval. Both passes are idempotent, so overlapping
// instances or restarts never double-bill: invoice generation hits the
// one-final-invoice-per-period constraint and the overdue sweep only moves
// pending rows forward.
type Worker struct {
	log *zap.Logger

	cfg        config.Config
	clock      clock.Clock
	store      usagedomain.EventStore
	invoiceSvc invoicedomain.Service

	stop chan struct{}
	done chan struct{}
}

func NewWorker(p WorkerParam) *Worker {
	return &Worker{
		log: p.Log.Named("scheduler"),

		cfg:        p.Cfg,
		clock:      p.Clock,
		store:      p.Store,
		invoiceSvc: p.InvoiceSvc,

		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Register wires the worker into the application lifecycle.
func Register(lc fx.Lifecycle, w *Worker) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if !w.cfg.Scheduler.Enabled {
				w.log.Info("scheduler disabled")
				return nil
			}
			go w.run()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if !w.cfg.Scheduler.Enabled {
				return nil
			}
			close(w.stop)
			select {
			case <-w.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func (w *Worker) run() {
	defer close(w.done)

	interval := w.cfg.Scheduler.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.log.Info("scheduler started", zap.Duration("poll_interval", interval))
	for {
		select {
		case <-w.stop:
			w.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			w.Tick(ctx)
			cancel()
		}
	}
}

// Tick runs one scheduling pass. Exposed for tests and manual triggering.
func (w *Worker) Tick(ctx context.Context) {
	if err := w.CloseOutPreviousPeriod(ctx); err != nil {
		w.log.Warn("period close-out failed", zap.Error(err))
	}
	if _, err := w.invoiceSvc.SweepOverdue(ctx, w.clock.Now()); err != nil {
		w.log.Warn("overdue sweep failed", zap.Error(err))
	}
}

// CloseOutPreviousPeriod generates a final invoice for every customer with
// usage in the period that just closed. Customers already invoiced are
// returned unchanged by the idempotent generate path.
func (w *Worker) CloseOutPreviousPeriod(ctx context.Context) error {
	loc := w.cfg.Location()
	now := w.clock.Now()
	period := usagedomain.PeriodOf(now, loc).Previous()

	start, end := period.Bounds(loc)
	customerIDs, err := w.store.ListCustomersWithEvents(ctx, start, end)
	if err != nil {
		return err
	}

	batch := w.cfg.Scheduler.BatchSize
	if batch > 0 && len(customerIDs) > batch {
		customerIDs = customerIDs[:batch]
	}

	var generated int
	var failures []error
	for _, customerID := range customerIDs {
		_, err := w.invoiceSvc.Generate(ctx, invoicedomain.GenerateRequest{
			CustomerID: customerID,
			Period:     period.String(),
		})
		if err != nil {
			failures = append(failures, err)
			w.log.Warn("invoice generation failed",
				zap.String("customer_id", customerID.String()),
				zap.String("period", period.String()),
				zap.Error(err),
			)
			continue
		}
		generated++
	}

	if generated > 0 {
		w.log.Info("period close-out pass complete",
			zap.String("period", period.String()),
			zap.Int("customers", len(customerIDs)),
			zap.Int("generated", generated),
		)
	}
	return errors.Join(failures...)
}
