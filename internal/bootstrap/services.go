package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/target/opscrm-api/config"
	"github.com/target/opscrm-api/internal/core"
	"github.com/target/opscrm-api/internal/data"
	httpx "github.com/target/opscrm-api/internal/http"
	"github.com/target/opscrm-api/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs          *service.JobService
	Templates     *service.ChecklistTemplateService
	Customers     *service.CustomerService
	Staff         *service.StaffService
	Auth          *service.AuthService
	LogoutURL     string
	Events        EventsBundle
	Observability ObservabilityContainer
}

// Close releases the broker connection and flushes telemetry.
func (c ServiceContainer) Close(ctx context.Context) {
	if err := c.Events.Close(); err != nil {
		slog.Default().WarnContext(ctx, "close event publisher failed", "error", err)
	}
	c.Observability.Close(ctx)
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Jobs      *data.JobRepo
	Templates *data.ChecklistTemplateRepo
	Customers *data.CustomerRepo
	Users     *data.UserRepo
	Cache     *data.RedisCacheRepo
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, rdb redis.UniversalClient, logger *slog.Logger) *serviceRepositories {
	repos := &serviceRepositories{
		Jobs:      data.NewJobRepo(db, data.RepoConfig{Logger: logger}),
		Templates: data.NewChecklistTemplateRepo(db),
		Customers: data.NewCustomerRepo(db),
		Users:     data.NewUserRepo(db),
	}
	if rdb != nil {
		repos.Cache = data.NewRedisCacheRepo(rdb)
	}
	return repos
}

func newTemplateCacheService(repos *serviceRepositories, cfg config.ChecklistConfig, logger *slog.Logger) *core.TemplateCacheService {
	if repos.Cache == nil {
		return nil
	}
	return core.NewTemplateCacheService(core.TemplateCacheServiceOptions{
		Cache:     repos.Cache,
		Templates: repos.Templates,
		Config:    core.TemplateCacheConfig{TTL: cfg.TemplateCacheTTL},
		Logger:    logger,
	})
}

func newJobService(repos *serviceRepositories, events EventsBundle, obs ObservabilityContainer, logger *slog.Logger) *service.JobService {
	return service.MustNewJobService(service.JobServiceOptions{
		Repo:      repos.Jobs,
		Templates: repos.Templates,
		Users:     repos.Users,
		Customers: repos.Customers,
		Events:    events.Publisher,
		Metrics:   obs.Sink(),
		Logger:    logger,
	})
}

// mustNew panics on a wiring error; options here are assembled from non-nil repositories.
func mustNew[T any](v T, err error) T {
	if err != nil {
		panic(err) //nolint:forbidigo // wiring bug, not a runtime condition
	}
	return v
}

// NewServices wires repositories, adapters and services from deps.
func NewServices(ctx context.Context, deps *ServiceDeps) ServiceContainer {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	repos := buildRepositories(deps.DB, deps.RedisClient, logger)
	obs := buildObservability(ctx, logger, cfg.Observability)
	events := BuildEventPublisher(cfg.Events, logger)

	staff := mustNew(service.NewStaffService(service.StaffServiceOptions{Repo: repos.Users, Logger: logger}))
	customers := mustNew(service.NewCustomerService(service.CustomerServiceOptions{Repo: repos.Customers, Logger: logger}))
	templates := service.MustNewChecklistTemplateService(service.ChecklistTemplateServiceOptions{
		Repo:   repos.Templates,
		Cache:  newTemplateCacheService(repos, cfg.Checklist, logger),
		Logger: logger,
	})

	auth := BuildAuthService(AuthConfig{
		Auth:        cfg.Auth,
		RedisClient: deps.RedisClient,
		Staff:       staff,
		Logger:      logger,
	})

	return ServiceContainer{
		Jobs:          newJobService(repos, events, obs, logger),
		Templates:     templates,
		Customers:     customers,
		Staff:         staff,
		Auth:          auth.Service,
		LogoutURL:     auth.LogoutURL,
		Events:        events,
		Observability: obs,
	}
}

// healthChecks probes the stores every request path depends on.
func healthChecks(db *sql.DB, rdb redis.UniversalClient) map[string]httpx.HealthCheck {
	checks := map[string]httpx.HealthCheck{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}

// ServiceOrchestrationConfig contains everything needed to run the enabled services.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// shutdownWaitTimeout bounds HTTP draining when no shutdown timeout is configured.
const shutdownWaitTimeout = 15 * time.Second

// runner is one long-lived component of the process, gated by its service mode.
// run must return once ctx is done.
type runner struct {
	mode config.ServiceMode
	name string
	run  func(ctx context.Context) error
}

func buildRunners(cfg *ServiceOrchestrationConfig, logger *slog.Logger) []runner {
	return []runner{
		{
			mode: config.ServiceModeHTTP,
			name: "http",
			run: func(ctx context.Context) error {
				srv := NewHTTPServer(&HTTPServerConfig{
					Config:       cfg.Config,
					Services:     cfg.Services,
					HealthChecks: healthChecks(cfg.DB, cfg.RedisClient),
					Logger:       logger,
				})
				return ServeHTTP(ctx, srv, cfg.Config.HTTP.ShutdownTimeout, logger)
			},
		},
		{
			mode: config.ServiceModeReaper,
			name: "reaper",
			run: func(ctx context.Context) error {
				return RunReaper(ctx, ReaperConfig{
					DB:      cfg.DB,
					Logger:  logger,
					Config:  cfg.Config.Reaper,
					Metrics: cfg.Services.Observability.Sink(),
				})
			},
		},
	}
}

// runEnabled runs every enabled runner until ctx ends. The first failure
// cancels the others and is returned once they have all stopped.
func runEnabled(ctx context.Context, enabled map[config.ServiceMode]bool, runners []runner, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range runners {
		if !enabled[r.mode] {
			continue
		}
		g.Go(func() error {
			logger.InfoContext(gctx, "service started", "service", r.name, "mode", r.mode)
			err := r.run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorContext(gctx, "service failed", "service", r.name, "error", err)
				return fmt.Errorf("%s failed: %w", r.name, err)
			}
			logger.InfoContext(gctx, "service stopped", "service", r.name)
			return nil
		})
	}
	return g.Wait()
}

// RunServicesWithShutdown blocks until SIGINT/SIGTERM or until an enabled
// service fails, then stops everything.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config with AppConfig is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	context.AfterFunc(ctx, func() { logger.Info("shutting down services") })
	return runEnabled(ctx, enabled, buildRunners(cfg, logger), logger)
}
