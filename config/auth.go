package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"opscrm"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:"opscrm"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	LogoutURL    string `env:"LOGOUT_URL"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID    string   `env:"USER_ID"    envDefault:"dev-admin"`
	FirstName string   `env:"FIRST_NAME" envDefault:"Dev"`
	LastName  string   `env:"LAST_NAME"  envDefault:"Admin"`
	Email     string   `env:"EMAIL"      envDefault:"dev@example.com"`
	Groups    []string `env:"GROUPS"     envDefault:"opscrm-admins" envSeparator:";"`
}

// APITokenConfig controls bearer tokens minted for scripts and the admin CLI.
type APITokenConfig struct {
	// Secret signs HS256 tokens. Bearer authentication is disabled while it is empty.
	Secret string        `env:"SECRET"`
	TTL    time.Duration `env:"TTL"    envDefault:"12h"`
	Issuer string        `env:"ISSUER" envDefault:"opscrm"`
}

// Enabled reports whether bearer tokens are accepted.
func (c APITokenConfig) Enabled() bool { return c.Secret != "" }

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// Identity provider groups mapped onto application roles. A user in several groups gets
	// the most privileged role; a user in none is a guest.
	AdminGroup      string `env:"ADMIN_GROUP,required"`
	OperationsGroup string `env:"OPERATIONS_GROUP"     envDefault:"opscrm-operations"`
	TrainingGroup   string `env:"TRAINING_GROUP"       envDefault:"opscrm-training"`
	QCManagerGroup  string `env:"QC_MANAGER_GROUP"     envDefault:"opscrm-qc"`

	// APIToken configures bearer authentication.
	APIToken APITokenConfig `envPrefix:"AUTH_API_TOKEN_"`

	// SessionTTL caps server-side sessions when the IdP reports no expiry.
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"8h"`
}

// Sanitize trims group names and clamps token and session lifetimes.
func (c *AuthConfig) Sanitize() {
	c.AdminGroup = strings.TrimSpace(c.AdminGroup)
	c.OperationsGroup = strings.TrimSpace(c.OperationsGroup)
	c.TrainingGroup = strings.TrimSpace(c.TrainingGroup)
	c.QCManagerGroup = strings.TrimSpace(c.QCManagerGroup)
	c.APIToken.Secret = strings.TrimSpace(c.APIToken.Secret)

	if c.APIToken.TTL < time.Minute {
		c.APIToken.TTL = time.Minute
	}
	if c.APIToken.TTL > 30*24*time.Hour {
		c.APIToken.TTL = 30 * 24 * time.Hour
	}
	if c.SessionTTL < 5*time.Minute {
		c.SessionTTL = 5 * time.Minute
	}
}
