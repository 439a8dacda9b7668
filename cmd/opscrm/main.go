package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/target/opscrm-api/config"
	"github.com/target/opscrm-api/internal/bootstrap"
)

func main() {
	logger := bootstrap.InitLogger()
	if err := run(context.Background(), logger); err != nil {
		logger.Error("opscrm exited", "error", err)
		os.Exit(1) //nolint:forbidigo // non-zero exit on fatal startup or runtime errors
	}
}

// infra holds the shared connections; close releases them in reverse order.
type infra struct {
	db     *sql.DB
	redis  redis.UniversalClient
	closer []func() error
}

func (i *infra) close(ctx context.Context, logger *slog.Logger) {
	for n := len(i.closer) - 1; n >= 0; n-- {
		if err := i.closer[n](); err != nil {
			logger.WarnContext(ctx, "release infrastructure", "error", err)
		}
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	logger = bootstrap.ConfigureLogger(cfg.Log).With("component", "opscrm")

	if err = bootstrap.ValidateServiceConfig(&cfg); err != nil {
		return err
	}
	logger.InfoContext(ctx, "starting",
		"services", bootstrap.GetEnabledServices(&cfg),
		"db", fmt.Sprintf("%s:%d/%s", cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.Name),
		"auth_mode", cfg.Auth.Mode,
		"events", cfg.Events.Enabled,
		"dev", cfg.IsDev)

	in, err := connect(&cfg, logger)
	if err != nil {
		return err
	}
	defer in.close(ctx, logger)

	if !cfg.Postgres.RunMigrationsOnStart {
		logger.InfoContext(ctx, "migrations on start disabled")
	} else if err = bootstrap.RunMigrations(ctx, in.db, logger); err != nil {
		return err
	}

	services := bootstrap.NewServices(ctx, &bootstrap.ServiceDeps{
		Config:      &cfg,
		DB:          in.db,
		RedisClient: in.redis,
		Logger:      logger,
	})
	defer services.Close(ctx)

	return bootstrap.RunServicesWithShutdown(&bootstrap.ServiceOrchestrationConfig{
		Config:      &cfg,
		Services:    services,
		DB:          in.db,
		RedisClient: in.redis,
		Logger:      logger,
	})
}

// connect opens Postgres then Redis. Anything opened before a failure is
// released before returning.
func connect(cfg *config.AppConfig, logger *slog.Logger) (*infra, error) {
	dbCfg := bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}
	in := &infra{}

	db, err := bootstrap.ConnectDB(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	in.db = db
	in.closer = append(in.closer, db.Close)

	rdb, err := bootstrap.ConnectRedis(dbCfg)
	if err != nil {
		in.close(context.Background(), logger)
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	in.redis = rdb
	in.closer = append(in.closer, rdb.Close)
	return in, nil
}
