package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/target/opscrm-api/config"
	"github.com/target/opscrm-api/internal/core"
	"github.com/target/opscrm-api/internal/observability/meter"
	"github.com/target/opscrm-api/internal/observability/metrics"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo    core.ReaperRepository // Required
	Config  config.ReaperConfig   // Required: Interval must be positive
	Logger  *slog.Logger          // Optional
	Metrics meter.Sink            // Optional
}

// ReaperService deletes CANCELLED jobs past CancelledMaxAge and inactive
// templates no job references past InactiveTemplateMaxAge. Other jobs are
// never touched.
type ReaperService struct {
	repo    core.ReaperRepository
	cfg     config.ReaperConfig
	logger  *slog.Logger
	metrics meter.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	switch {
	case opts.Repo == nil:
		return nil, errors.New("ReaperRepository is required")
	case opts.Config.Interval <= 0:
		return nil, errors.New("reaper interval must be positive")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ReaperService{
		repo:    opts.Repo,
		cfg:     opts.Config,
		logger:  logger.With("component", "reaper_service"),
		metrics: opts.Metrics,
	}, nil
}

// Run sweeps once after a short random delay, then every Interval, until ctx
// ends. Cancellation is a clean stop.
func (s *ReaperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "reaper started",
		"interval", s.cfg.Interval,
		"cancelled_max_age", s.cfg.CancelledMaxAge,
		"inactive_template_max_age", s.cfg.InactiveTemplateMaxAge,
		"batch_size", s.cfg.BatchSize)

	// Up to a tenth of the interval, so replicas do not sweep in lockstep.
	delay := time.NewTimer(rand.N(s.cfg.Interval/10 + 1))
	defer delay.Stop()
	select {
	case <-ctx.Done():
		return s.stopped(ctx)
	case <-delay.C:
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		s.sweep(ctx)
		select {
		case <-ctx.Done():
			return s.stopped(ctx)
		case <-ticker.C:
		}
	}
}

func (s *ReaperService) stopped(ctx context.Context) error {
	s.logger.InfoContext(ctx, "reaper stopping", "reason", context.Cause(ctx))
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func (s *ReaperService) sweep(ctx context.Context) {
	err := s.RunOnce(ctx)
	switch {
	case err == nil:
	case isContextCancellation(err):
		s.logger.DebugContext(ctx, "sweep interrupted", "error", err)
	default:
		s.logger.ErrorContext(ctx, "sweep failed", "error", err)
	}
}

type purgeStep struct {
	name   string
	maxAge time.Duration
	purge  func(context.Context, core.PurgeParams) (int64, error)
}

// RunOnce runs every purge step to completion. A failing step is reported but
// does not stop the others.
func (s *ReaperService) RunOnce(ctx context.Context) error {
	start := time.Now()
	var errs []error
	for _, step := range []purgeStep{
		{name: "cancelled_jobs", maxAge: s.cfg.CancelledMaxAge, purge: s.repo.PurgeCancelledJobs},
		{name: "inactive_templates", maxAge: s.cfg.InactiveTemplateMaxAge, purge: s.repo.PurgeInactiveTemplates},
	} {
		stepStart := time.Now()
		count, err := s.drain(ctx, step)
		m := metrics.ReaperMetric{Step: step.name, Count: count, Elapsed: time.Since(stepStart)}
		if !isContextCancellation(err) {
			m.Err = err
		}
		metrics.EmitReaperStep(s.metrics, m)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}

	if s.metrics != nil {
		s.metrics.Timing("reaper.cleanup_duration", time.Since(start), nil)
		if len(errs) == 0 {
			s.metrics.Gauge("reaper.last_success_epoch", float64(time.Now().Unix()), nil)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	return nil
}

// drain repeats a step while it keeps returning full batches.
func (s *ReaperService) drain(ctx context.Context, step purgeStep) (int64, error) {
	params := core.PurgeParams{MaxAge: step.maxAge, BatchSize: s.cfg.BatchSize}
	var total int64
	for {
		n, err := step.purge(ctx, params)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 || n < int64(params.BatchSize) {
			break
		}
		if err = ctx.Err(); err != nil {
			return total, err
		}
	}
	if total > 0 {
		s.logger.InfoContext(ctx, "purged", "step", step.name, "count", total, "max_age", step.maxAge)
	}
	return total, nil
}

func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
