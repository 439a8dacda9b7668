// Package devauth signs everyone in as one configured identity. It exists for
// local development and is refused outside dev mode.
package devauth

import (
	"cmp"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	domainauth "github.com/target/opscrm-api/internal/domain/auth"
	"github.com/target/opscrm-api/internal/ports"
)

// Config is the identity every login resolves to. UserID and Email are required.
type Config struct {
	UserID    string
	FirstName string
	LastName  string
	Email     string
	Groups    []string
	// SessionDuration defaults to 8h.
	SessionDuration time.Duration
	// CallbackPath defaults to /auth/callback.
	CallbackPath string
}

// Provider skips the IdP: Begin points the browser straight at our callback
// and Exchange accepts any code.
type Provider struct {
	identity     domainauth.Identity
	ttl          time.Duration
	callbackPath string
	now          func() time.Time
}

// NewProvider validates cfg and fills defaults.
func NewProvider(cfg Config) (*Provider, error) {
	switch {
	case cfg.UserID == "":
		return nil, errors.New("dev auth: UserID is required")
	case cfg.Email == "":
		return nil, errors.New("dev auth: Email is required")
	}
	return &Provider{
		identity: domainauth.Identity{
			UserID:    cfg.UserID,
			FirstName: cfg.FirstName,
			LastName:  cfg.LastName,
			Email:     cfg.Email,
			Groups:    slices.Clone(cfg.Groups),
		},
		ttl:          cmp.Or(cfg.SessionDuration, 8*time.Hour),
		callbackPath: cmp.Or(cfg.CallbackPath, "/auth/callback"),
		now:          time.Now,
	}, nil
}

// Begin implements ports.AuthProvider.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := token()
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := token()
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	q := url.Values{"code": {"dev"}, "state": {state}}
	return p.callbackPath + "?" + q.Encode(), state, nonce, nil
}

// Exchange implements ports.AuthProvider. State and nonce were already checked
// by the callback handler against its cookies.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
	id := p.identity
	id.Groups = slices.Clone(p.identity.Groups)
	id.ExpiresAt = p.now().Add(p.ttl)
	return id, nil
}

// token is 18 random bytes as 24 base64url characters.
func token() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
