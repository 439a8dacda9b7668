package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/opscrm-api/internal/testutil"
)

func TestRedisCacheRepo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)
	defer client.Close()

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		key := "test:templates:cleaning"
		value := []byte(`[{"id":"a"}]`)
		ttl := 5 * time.Minute

		require.NoError(t, repo.Set(ctx, key, value, ttl))

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, result)

		actualTTL := client.TTL(ctx, key).Val()
		assert.True(t, actualTTL > 0 && actualTTL <= ttl)
	})

	t.Run("get missing key", func(t *testing.T) {
		result, err := repo.Get(ctx, "test:missing")
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("delete several keys", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "test:del:1", []byte("1"), time.Minute))
		require.NoError(t, repo.Set(ctx, "test:del:2", []byte("2"), time.Minute))

		deleted, err := repo.Delete(ctx, "test:del:1", "test:del:2", "test:del:3")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, "test:del:1")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("counter", func(t *testing.T) {
		n, err := repo.Counter(ctx, "test:gen")
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = repo.Incr(ctx, "test:gen")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = repo.Counter(ctx, "test:gen")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("health check", func(t *testing.T) {
		assert.NoError(t, repo.Health(ctx))
	})
}

func TestRedisCacheRepo_EmptyKey(t *testing.T) {
	t.Parallel()
	// Validation happens before any Redis call, so a nil client is never touched.
	repo := NewRedisCacheRepo(nil)
	ctx := context.Background()

	err := repo.Set(ctx, "", []byte("v"), time.Minute)
	require.ErrorContains(t, err, "key cannot be empty")

	_, err = repo.Get(ctx, "")
	require.ErrorContains(t, err, "key cannot be empty")

	_, err = repo.Delete(ctx, "ok", "")
	require.ErrorContains(t, err, "key cannot be empty")

	_, err = repo.Incr(ctx, "")
	require.ErrorContains(t, err, "key cannot be empty")

	_, err = repo.Counter(ctx, "")
	require.ErrorContains(t, err, "key cannot be empty")

	deleted, err := repo.Delete(ctx)
	require.NoError(t, err)
	assert.False(t, deleted)
}
