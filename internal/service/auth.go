package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/target/opscrm-api/internal/data"
	domainauth "github.com/target/opscrm-api/internal/domain/auth"
	"github.com/target/opscrm-api/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	// Required:
	Provider ports.AuthProvider
	Sessions ports.SessionStore
	Roles    ports.RoleMapper

	// Optional:
	Tokens     ports.TokenCodec     // bearer tokens; nil disables them
	Staff      ports.StaffDirectory // mirrors signed-in staff for assignment
	SessionTTL time.Duration        // upper bound on session lifetime
	Clock      data.TimeProvider
	Logger     *slog.Logger
}

// AuthService turns IdP logins into server-side sessions and resolves the
// session or bearer token on each request.
type AuthService struct {
	opts   AuthServiceOptions
	logger *slog.Logger
}

var errSessionExpired = errors.New("session expired")

// ErrTokensDisabled means a bearer token was presented but no signing secret is configured.
var ErrTokensDisabled = errors.New("api tokens are not enabled")

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Clock == nil {
		opts.Clock = &data.RealTimeProvider{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{opts: opts, logger: logger.With("component", "auth_service")}
}

// BeginLoginResult is where to send the browser and what the callback must echo.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin asks the provider for an authorization URL.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	var (
		res BeginLoginResult
		err error
	)
	res.AuthURL, res.State, res.Nonce, err = s.opts.Provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}
	return &res, nil
}

// CompleteLoginInput is the callback's code plus the state and nonce from cookies.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLoginResult carries the stored session.
type CompleteLoginResult struct {
	Session domainauth.Session
}

// CompleteLogin exchanges the code, maps groups to a role and stores a new
// session. A failed staff sync is logged and does not fail the login.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*CompleteLoginResult, error) {
	switch {
	case input.Code == "":
		return nil, errors.New("authorization code is required")
	case input.State == "":
		return nil, errors.New("state parameter is required")
	case input.Nonce == "":
		return nil, errors.New("nonce parameter is required")
	}

	identity, err := s.opts.Provider.Exchange(ctx, ports.ExchangeInput(input))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	sess := domainauth.Session{
		ID:        uuid.NewString(),
		UserID:    identity.UserID,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Email:     identity.Email,
		Role:      s.opts.Roles.Map(identity.Groups),
		ExpiresAt: s.capExpiry(identity.ExpiresAt),
	}
	if err = s.opts.Sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	if s.opts.Staff != nil {
		if err = s.opts.Staff.SyncFromSession(ctx, sess); err != nil {
			s.logger.WarnContext(ctx, "staff sync after login failed", "user_id", sess.UserID, "error", err)
		}
	}
	s.logger.InfoContext(ctx, "user signed in", "user_id", sess.UserID, "role", sess.Role)
	return &CompleteLoginResult{Session: sess}, nil
}

// capExpiry bounds the IdP expiry by SessionTTL. A zero IdP expiry takes the cap.
func (s *AuthService) capExpiry(idp time.Time) time.Time {
	if s.opts.SessionTTL <= 0 {
		return idp
	}
	limit := s.opts.Clock.Now().Add(s.opts.SessionTTL)
	if idp.IsZero() || idp.After(limit) {
		return limit
	}
	return idp
}

// GetSession loads a live session. Expired entries are deleted on sight.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}
	sess, err := s.opts.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !s.opts.Clock.Now().After(sess.ExpiresAt) {
		return &sess, nil
	}
	if err = s.opts.Sessions.Delete(ctx, sessionID); err != nil {
		return nil, errors.Join(errSessionExpired, fmt.Errorf("delete session: %w", err))
	}
	return nil, errSessionExpired
}

// ResolveBearer verifies an API token and returns the session it carries.
func (s *AuthService) ResolveBearer(_ context.Context, token string) (*domainauth.Session, error) {
	if s.opts.Tokens == nil {
		return nil, ErrTokensDisabled
	}
	if token == "" {
		return nil, errors.New("bearer token is required")
	}
	sess, err := s.opts.Tokens.Verify(token)
	if err == nil && !sess.Role.Valid() {
		err = fmt.Errorf("unknown role %q", sess.Role)
	}
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	return &sess, nil
}

// IssueToken signs a bearer token for sess valid for ttl.
func (s *AuthService) IssueToken(sess domainauth.Session, ttl time.Duration) (string, time.Time, error) {
	switch {
	case s.opts.Tokens == nil:
		return "", time.Time{}, ErrTokensDisabled
	case sess.UserID == "":
		return "", time.Time{}, errors.New("user id is required")
	case !sess.Role.Valid():
		return "", time.Time{}, fmt.Errorf("unknown role %q", sess.Role)
	}
	return s.opts.Tokens.Issue(sess, ttl)
}

// Logout deletes the session. An empty id is a no-op.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.opts.Sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
