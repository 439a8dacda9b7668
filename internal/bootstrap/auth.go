package bootstrap

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/opscrm-api/config"
	"github.com/target/opscrm-api/internal/adapters/apitoken"
	"github.com/target/opscrm-api/internal/adapters/authroles"
	"github.com/target/opscrm-api/internal/adapters/devauth"
	"github.com/target/opscrm-api/internal/adapters/oidc"
	redisadapter "github.com/target/opscrm-api/internal/adapters/redis"
	"github.com/target/opscrm-api/internal/ports"
	"github.com/target/opscrm-api/internal/service"
)

// AuthConfig contains configuration for auth service.
type AuthConfig struct {
	Auth        config.AuthConfig
	RedisClient redis.UniversalClient
	Staff       ports.StaffDirectory
	Logger      *slog.Logger
}

// AuthBundle is the wired auth service plus what the router needs to know about the provider.
type AuthBundle struct {
	Service   *service.AuthService
	LogoutURL string
}

// BuildAuthService creates an auth service based on the configured auth mode.
// Returns a zero bundle if auth is not configured or configuration is invalid.
func BuildAuthService(cfg AuthConfig) AuthBundle {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RedisClient == nil {
		logger.Warn("auth service disabled: redis client not configured", "mode", cfg.Auth.Mode)
		return AuthBundle{}
	}

	var (
		prov      ports.AuthProvider
		logoutURL string
	)
	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		p, err := buildDevAuthProvider(cfg.Auth)
		if err != nil {
			logger.Warn("failed to create dev auth provider, auth disabled", "error", err)
			return AuthBundle{}
		}
		prov = p

	case config.AuthModeOAuth:
		p := buildOAuthProvider(cfg.Auth.OAuth, logger)
		if p == nil {
			return AuthBundle{}
		}
		prov, logoutURL = p, p.LogoutURL()

	default:
		return AuthBundle{}
	}

	opts := service.AuthServiceOptions{
		Provider:   prov,
		Sessions:   redisadapter.NewSessionStore(cfg.RedisClient),
		Roles:      roleMapper(cfg.Auth),
		Staff:      cfg.Staff,
		SessionTTL: cfg.Auth.SessionTTL,
		Logger:     logger,
	}
	if codec := buildTokenCodec(cfg.Auth.APIToken, logger); codec != nil {
		opts.Tokens = codec
	}

	return AuthBundle{Service: service.NewAuthService(opts), LogoutURL: logoutURL}
}

func roleMapper(cfg config.AuthConfig) authroles.StaticRoleMapper {
	return authroles.StaticRoleMapper{
		AdminGroup:      cfg.AdminGroup,
		OperationsGroup: cfg.OperationsGroup,
		QCManagerGroup:  cfg.QCManagerGroup,
		TrainingGroup:   cfg.TrainingGroup,
	}
}

func buildDevAuthProvider(cfg config.AuthConfig) (*devauth.Provider, error) {
	return devauth.NewProvider(devauth.Config{
		UserID:          cfg.DevAuth.UserID,
		FirstName:       cfg.DevAuth.FirstName,
		LastName:        cfg.DevAuth.LastName,
		Email:           cfg.DevAuth.Email,
		Groups:          cfg.DevAuth.Groups,
		SessionDuration: cfg.SessionTTL,
	})
}

func buildOAuthProvider(oauth config.OAuthConfig, logger *slog.Logger) *oidc.Provider {
	// Only enable when fully configured
	if oauth.DiscoveryURL == "" || oauth.ClientID == "" || oauth.ClientSecret == "" {
		logger.Warn("AuthModeOAuth selected but required config missing; auth disabled",
			"discovery_url_empty", oauth.DiscoveryURL == "",
			"client_id_empty", oauth.ClientID == "",
			"client_secret_empty", oauth.ClientSecret == "",
		)
		return nil
	}

	prov, err := oidc.NewProvider(oidc.ProviderConfig{
		ClientID:     oauth.ClientID,
		ClientSecret: oauth.ClientSecret,
		RedirectURL:  oauth.RedirectURL,
		Scope:        oauth.Scope,
		DiscoveryURL: oauth.DiscoveryURL,
		LogoutURL:    oauth.LogoutURL,
	})
	if err != nil {
		logger.Warn("failed to create OIDC provider, auth disabled", "error", err)
		return nil
	}
	return prov
}

// BuildTokenCodec returns the bearer token codec, or nil when no signing secret is set.
func BuildTokenCodec(cfg config.APITokenConfig) (*apitoken.Codec, error) {
	if !cfg.Enabled() {
		return nil, nil //nolint:nilnil // disabled is not an error
	}
	return apitoken.NewCodec(cfg.Secret, cfg.Issuer)
}

func buildTokenCodec(cfg config.APITokenConfig, logger *slog.Logger) *apitoken.Codec {
	codec, err := BuildTokenCodec(cfg)
	if err != nil {
		logger.Warn("api tokens disabled", "error", err)
		return nil
	}
	return codec
}
