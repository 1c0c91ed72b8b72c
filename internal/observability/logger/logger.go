// Package logger configures the zap logger and request logging middleware.
package logger

import (
	"context"

	"github.com/civicgrid/civicbill/internal/config"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the application logger and replaces zap globals.
var Module = fx.Module("logger",
	fx.Provide(NewLogger),
)

// NewLogger builds the process logger. Production uses JSON output,
// everything else the development console encoder.
func NewLogger(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	var (
		log *zap.Logger
		err error
	)
	if cfg.IsProduction() {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}

	log = log.With(zap.String("service", cfg.Observability.ServiceName))
	zap.ReplaceGlobals(log)

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = log.Sync()
			return nil
		},
	})

	return log, nil
}

// FromContext returns the global logger enriched with the active trace identity.
func FromContext(ctx context.Context) *zap.Logger {
	log := zap.L()
	span := trace.SpanContextFromContext(ctx)
	if span.IsValid() {
		log = log.With(
			zap.String("trace_id", span.TraceID().String()),
			zap.String("span_id", span.SpanID().String()),
		)
	}
	return log
}
