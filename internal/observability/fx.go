// Package observability assembles logging, tracing and metrics.
package observability

import (
	"github.com/civicgrid/civicbill/internal/config"
	"github.com/civicgrid/civicbill/internal/observability/logger"
	"github.com/civicgrid/civicbill/internal/observability/metrics"
	"github.com/civicgrid/civicbill/internal/observability/tracing"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	logger.Module,
	fx.Provide(
		tracingConfig,
		metricsConfig,
		metricsProviderConfig,
		metrics.NewMeterProvider,
		metrics.NewHTTPMetrics,
		metrics.NewBillingMetrics,
	),
	fx.Invoke(tracing.NewProvider),
)

func tracingConfig(cfg config.Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.Observability.TracingEnabled,
		ServiceName:      cfg.Observability.ServiceName,
		ServiceVersion:   cfg.Observability.ServiceVersion,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.Observability.OTLPEndpoint,
		ExporterProtocol: cfg.Observability.OTLPProtocol,
		SamplingRatio:    cfg.Observability.SamplingRatio,
	}
}

func metricsConfig(cfg config.Config) metrics.Config {
	return metrics.Config{ServiceName: cfg.Observability.ServiceName}
}

func metricsProviderConfig(cfg config.Config) metrics.ProviderConfig {
	return metrics.ProviderConfig{
		Enabled:  cfg.Observability.MetricsEnabled,
		Endpoint: cfg.Observability.OTLPEndpoint,
	}
}
