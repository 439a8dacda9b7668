// Package ports holds the interfaces services depend on. Adapters under
// internal/adapters implement them.
package ports

import (
	"context"
	"time"

	domainauth "github.com/target/opscrm-api/internal/domain/auth"
)

// BeginInput is what a login needs before the IdP round trip.
type BeginInput struct {
	RedirectURL string
}

// ExchangeInput is what the callback brings back.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// AuthProvider drives the browser sign-in against an identity provider.
type AuthProvider interface {
	// Begin returns where to send the browser plus the state and nonce the
	// callback must echo.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)
	// Exchange trades the code for a verified identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// SessionStore keeps server-side sessions keyed by opaque id.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// RoleMapper picks the single role a set of directory groups grants.
type RoleMapper interface {
	Map(groups []string) domainauth.Role
}

// TokenCodec issues and checks signed bearer tokens.
type TokenCodec interface {
	Issue(sess domainauth.Session, ttl time.Duration) (token string, expiresAt time.Time, err error)
	Verify(token string) (domainauth.Session, error)
}

// StaffDirectory mirrors signed-in users into the staff table.
type StaffDirectory interface {
	SyncFromSession(ctx context.Context, sess domainauth.Session) error
}
