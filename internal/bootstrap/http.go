package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/opscrm-api/config"
	httpx "github.com/target/opscrm-api/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config       *config.AppConfig
	Services     ServiceContainer
	HealthChecks map[string]httpx.HealthCheck
	Logger       *slog.Logger
}

// NewHTTPServer builds the API server without starting it.
func NewHTTPServer(cfg *HTTPServerConfig) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	addr := appCfg.HTTP.Addr
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           buildHTTPHandler(cfg.Services, cfg.HealthChecks, appCfg.HTTP, logger),
		ReadHeaderTimeout: appCfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
}

// ServeHTTP listens until ctx is done, then drains in-flight requests for up to
// shutdownTimeout. A listen failure is returned immediately.
func ServeHTTP(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, logger *slog.Logger) error {
	listenErr := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "starting HTTP server", "addr", srv.Addr)
		listenErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-listenErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	case <-ctx.Done():
	}
	return ShutdownHTTPServer(ShutdownConfig{Context: ctx, Server: srv, Timeout: shutdownTimeout, Logger: logger})
}

func buildHTTPHandler(
	svcs ServiceContainer,
	checks map[string]httpx.HealthCheck,
	httpCfg config.HTTPConfig,
	logger *slog.Logger,
) http.Handler {
	services := httpx.RouterServices{
		Jobs:         svcs.Jobs,
		Templates:    svcs.Templates,
		Customers:    svcs.Customers,
		Staff:        svcs.Staff,
		CookieDomain: httpCfg.CookieDomain,
		LogoutURL:    svcs.LogoutURL,
		MaxBodyBytes: httpCfg.MaxBodyBytes,
		HealthChecks: checks,
		Logger:       logger,
	}
	// A nil *AuthService must stay a nil interface so the router answers 401.
	if svcs.Auth != nil {
		services.Auth = svcs.Auth
	}
	return httpx.NewRouter(services)
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = shutdownWaitTimeout
	}
	// The service context is already cancelled at this point; draining needs its own deadline.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(cfg.Context), timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
