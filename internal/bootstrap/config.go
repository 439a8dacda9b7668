package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/target/opscrm-api/config"
)

// InitLogger installs a JSON logger at info for the window before config is read.
func InitLogger() *slog.Logger {
	return ConfigureLogger(config.LogConfig{Level: "info", Format: "json"})
}

// ConfigureLogger builds the process logger from cfg and makes it the slog default.
// Unknown levels fall back to info.
func ConfigureLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if level.UnmarshalText([]byte(cfg.Level)) != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// LoadConfig reads an optional .env from the working directory, then parses the
// environment into AppConfig and sanitizes it.
func LoadConfig() (config.AppConfig, error) {
	var cfg config.AppConfig
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env file: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// ValidateServiceConfig rejects configurations that cannot start: no services,
// or the mock auth provider behind a non-dev HTTP server.
func ValidateServiceConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("service config is required")
	}
	services, err := cfg.GetEnabledServices()
	switch {
	case err != nil:
		return fmt.Errorf("invalid service configuration: %w", err)
	case len(services) == 0:
		return errors.New("no services enabled")
	case services[config.ServiceModeHTTP] && cfg.Auth.Mode == config.AuthModeMock && !cfg.IsDev:
		return errors.New("AUTH_MODE=mock is only allowed in development")
	}
	return nil
}

// GetEnabledServices names the enabled modes in start order. An invalid list
// yields none; ValidateServiceConfig reports why.
func GetEnabledServices(cfg *config.AppConfig) []string {
	enabled := []string{}
	if cfg == nil {
		return enabled
	}
	for _, mode := range config.ValidServiceModes() {
		if cfg.Enabled(mode) {
			enabled = append(enabled, string(mode))
		}
	}
	return enabled
}
