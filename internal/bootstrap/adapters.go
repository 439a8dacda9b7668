package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/target/opscrm-api/config"
	"github.com/target/opscrm-api/internal/adapters/rabbitmq"
	"github.com/target/opscrm-api/internal/adapters/reaper"
	"github.com/target/opscrm-api/internal/core"
	"github.com/target/opscrm-api/internal/observability/meter"
	"github.com/target/opscrm-api/internal/observability/tracing"
)

// ReaperConfig contains configuration for reaper.
type ReaperConfig struct {
	DB      *sql.DB
	Logger  *slog.Logger
	Config  config.ReaperConfig
	Metrics meter.Sink
}

// RunReaper starts the reaper service.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:      cfg.DB,
		Config:  cfg.Config,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}

	return runner.Run(ctx)
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *meter.Client
	MetricsConfig config.ObservabilityMetricsConfig
	// ShutdownTracing flushes pending spans; always non-nil.
	ShutdownTracing func(context.Context) error
}

// Sink returns the metrics sink, or nil when metrics are disabled.
//
//nolint:ireturn // callers take the Sink port
func (o ObservabilityContainer) Sink() meter.Sink {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink
}

// Close flushes pending spans and metric exports.
func (o ObservabilityContainer) Close(ctx context.Context) {
	if o.ShutdownTracing != nil {
		if err := o.ShutdownTracing(ctx); err != nil {
			slog.Default().WarnContext(ctx, "tracer shutdown failed", "error", err)
		}
	}
	if err := o.MetricsSink.Close(ctx); err != nil {
		slog.Default().WarnContext(ctx, "meter shutdown failed", "error", err)
	}
}

// buildObservability configures metrics and tracing. Failures degrade to disabled.
func buildObservability(ctx context.Context, logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	out := ObservabilityContainer{
		MetricsConfig:   cfg.Metrics,
		ShutdownTracing: func(context.Context) error { return nil },
	}

	if cfg.Metrics.IsEnabled() {
		client, err := meter.Setup(ctx, meter.Config{
			Endpoint:    cfg.Metrics.Endpoint,
			Insecure:    cfg.Metrics.Insecure,
			ServiceName: cfg.Metrics.ServiceName,
			Prefix:      cfg.Metrics.Prefix,
			Interval:    cfg.Metrics.Interval,
			Logger:      obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise metrics exporter", "error", err)
		} else {
			out.MetricsSink = client
			obsLogger.Info("metrics enabled", "endpoint", cfg.Metrics.Endpoint, "interval", cfg.Metrics.Interval)
		}
	}

	shutdown, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
		Logger:      obsLogger,
	})
	if err != nil {
		obsLogger.Error("failed to initialise tracing", "error", err)
	} else {
		out.ShutdownTracing = shutdown
	}

	return out
}

// EventsBundle holds the job event publisher. Publisher is nil when events are disabled.
type EventsBundle struct {
	Publisher core.EventPublisher
	close     func() error
}

// Close releases the broker connection.
func (e EventsBundle) Close() error {
	if e.close == nil {
		return nil
	}
	return e.close()
}

// BuildEventPublisher dials the broker when events are enabled. A broker that cannot be
// reached disables events rather than failing startup.
func BuildEventPublisher(cfg config.EventsConfig, logger *slog.Logger) EventsBundle {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		logger.Info("job events disabled")
		return EventsBundle{}
	}
	pub, err := rabbitmq.Dial(cfg, logger)
	if err != nil {
		logger.Error("job events disabled: broker unavailable", "exchange", cfg.Exchange, "error", err)
		return EventsBundle{}
	}
	logger.Info("job events enabled", "exchange", cfg.Exchange)
	return EventsBundle{Publisher: pub, close: pub.Close}
}
