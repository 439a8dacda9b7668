package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/opscrm-api/internal/domain/auth"
	"github.com/target/opscrm-api/internal/testutil"
)

func testSession(id string, ttl time.Duration) domainauth.Session {
	return domainauth.Session{
		ID:        id,
		UserID:    "ops-" + id,
		FirstName: "Gina",
		Email:     "gina@example.com",
		Role:      domainauth.RoleOperations,
		ExpiresAt: time.Now().Add(ttl).Truncate(time.Millisecond).UTC(),
	}
}

func TestSessionStore(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	ctx := context.Background()
	store := NewSessionStore(client)

	t.Run("round trip sets key ttl", func(t *testing.T) {
		sess := testSession("rt", 30*time.Minute)
		require.NoError(t, store.Save(ctx, sess))

		got, err := store.Get(ctx, "rt")
		require.NoError(t, err)
		assert.Equal(t, sess.UserID, got.UserID)
		assert.Equal(t, sess.Role, got.Role)
		assert.True(t, sess.ExpiresAt.Equal(got.ExpiresAt))

		ttl := client.TTL(ctx, DefaultSessionPrefix+"rt").Val()
		assert.InDelta(t, (30 * time.Minute).Seconds(), ttl.Seconds(), 5)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, testSession("del", time.Minute)))
		require.NoError(t, store.Delete(ctx, "del"))
		require.NoError(t, store.Delete(ctx, ""))

		_, err := store.Get(ctx, "del")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing ids", func(t *testing.T) {
		for _, id := range []string{"", "never-saved"} {
			_, err := store.Get(ctx, id)
			require.ErrorIs(t, err, ErrNotFound, id)
		}
	})

	t.Run("save rejects", func(t *testing.T) {
		bad := map[string]domainauth.Session{
			"session ID cannot be empty": testSession("", time.Minute),
			"session is expired":         testSession("old", -time.Minute),
			"not a known role": func() domainauth.Session {
				s := testSession("role", time.Minute)
				s.Role = "user"
				return s
			}(),
		}
		for want, sess := range bad {
			require.ErrorContains(t, store.Save(ctx, sess), want)
		}
	})

	t.Run("clock past expiry deletes entry", func(t *testing.T) {
		skewed := NewSessionStore(client)
		require.NoError(t, skewed.Save(ctx, testSession("skew", time.Hour)))

		skewed.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := skewed.Get(ctx, "skew")
		require.ErrorIs(t, err, ErrNotFound)
		assert.Zero(t, client.Exists(ctx, DefaultSessionPrefix+"skew").Val())
	})

	t.Run("retired role is dropped on read", func(t *testing.T) {
		legacy := `{"id":"legacy","user_id":"ops-1","role":"user","expires_at":"` +
			time.Now().Add(time.Hour).UTC().Format(time.RFC3339) + `"}`
		require.NoError(t, client.Set(ctx, DefaultSessionPrefix+"legacy", legacy, time.Hour).Err())

		_, err := store.Get(ctx, "legacy")
		require.ErrorIs(t, err, ErrNotFound)
		assert.Zero(t, client.Exists(ctx, DefaultSessionPrefix+"legacy").Val())
	})

	t.Run("custom prefix", func(t *testing.T) {
		tenant := NewSessionStoreWithPrefix(client, "tenant-b:")
		require.NoError(t, tenant.Save(ctx, testSession("p1", time.Minute)))

		assert.Equal(t, int64(1), client.Exists(ctx, "tenant-b:p1").Val())
		_, err := store.Get(ctx, "p1")
		require.ErrorIs(t, err, ErrNotFound)
		_, err = tenant.Get(ctx, "p1")
		require.NoError(t, err)
	})

	t.Run("corrupt payload", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, DefaultSessionPrefix+"junk", "{not json", time.Minute).Err())
		_, err := store.Get(ctx, "junk")
		require.ErrorContains(t, err, "unmarshal session")
	})
}
