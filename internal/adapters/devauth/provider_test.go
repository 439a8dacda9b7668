package devauth

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/opscrm-api/internal/ports"
)

func newTestProvider(t *testing.T, cfg Config) *Provider {
	t.Helper()
	prov, err := NewProvider(cfg)
	require.NoError(t, err)
	return prov
}

func TestProvider_Begin(t *testing.T) {
	t.Parallel()

	t.Run("default callback", func(t *testing.T) {
		t.Parallel()
		prov := newTestProvider(t, Config{UserID: "dev-admin", Email: "dev@example.com"})

		authURL, state, nonce, err := prov.Begin(context.Background(), ports.BeginInput{RedirectURL: "/"})
		require.NoError(t, err)

		u, err := url.Parse(authURL)
		require.NoError(t, err)
		assert.Equal(t, "/auth/callback", u.Path)
		assert.Equal(t, "dev", u.Query().Get("code"))
		assert.Equal(t, state, u.Query().Get("state"))
		assert.Len(t, state, 24)
		assert.Len(t, nonce, 24)
		assert.NotEqual(t, state, nonce)
	})

	t.Run("custom callback", func(t *testing.T) {
		t.Parallel()
		prov := newTestProvider(t, Config{UserID: "u", Email: "u@example.com", CallbackPath: "/crm/auth/callback"})

		authURL, _, _, err := prov.Begin(context.Background(), ports.BeginInput{})
		require.NoError(t, err)
		assert.Contains(t, authURL, "/crm/auth/callback?")
	})
}

func TestProvider_Exchange(t *testing.T) {
	t.Parallel()
	fixed := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		ttl     time.Duration
		wantExp time.Time
	}{
		{name: "default duration", wantExp: fixed.Add(8 * time.Hour)},
		{name: "configured duration", ttl: 30 * time.Minute, wantExp: fixed.Add(30 * time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			prov := newTestProvider(t, Config{
				UserID:          "dev-admin",
				FirstName:       "Dev",
				LastName:        "Admin",
				Email:           "dev@example.com",
				Groups:          []string{"opscrm-admins"},
				SessionDuration: tt.ttl,
			})
			prov.now = func() time.Time { return fixed }

			id, err := prov.Exchange(context.Background(), ports.ExchangeInput{Code: "anything"})
			require.NoError(t, err)
			assert.Equal(t, "dev-admin", id.UserID)
			assert.Equal(t, "Dev", id.FirstName)
			assert.Equal(t, "dev@example.com", id.Email)
			assert.Equal(t, tt.wantExp, id.ExpiresAt)
		})
	}
}

func TestProvider_ExchangeReturnsCopies(t *testing.T) {
	t.Parallel()
	groups := []string{"opscrm-admins"}
	prov := newTestProvider(t, Config{UserID: "u", Email: "u@example.com", Groups: groups})
	groups[0] = "edited-after-construction"

	id, err := prov.Exchange(context.Background(), ports.ExchangeInput{})
	require.NoError(t, err)
	id.Groups[0] = "tampered"

	again, err := prov.Exchange(context.Background(), ports.ExchangeInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{"opscrm-admins"}, again.Groups)
}

func TestNewProvider_RequiresIdentity(t *testing.T) {
	t.Parallel()
	_, err := NewProvider(Config{Email: "dev@example.com"})
	require.EqualError(t, err, "dev auth: UserID is required")
	_, err = NewProvider(Config{UserID: "dev"})
	require.EqualError(t, err, "dev auth: Email is required")
}
