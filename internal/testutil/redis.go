package testutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// SetupTestRedis returns a client on a flushed Redis database reserved for this test, or skips
// t when no Redis is reachable. REDIS_ADDR wins; otherwise redis:6379, localhost:6379 and the
// docker-compose test port localhost:56379 are tried in order.
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()

	addr, err := findRedis()
	if err != nil {
		if envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") {
			t.Fatal("redis not available for testing:", err)
		}
		t.Skip("redis not available for testing:", err)
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: reserveRedisDB(t, addr)})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush test redis: %v", err)
	}
	return client
}

func findRedis() (string, error) {
	candidates := []string{"redis:6379", "localhost:6379", "localhost:56379"}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		candidates = []string{addr}
	}
	var lastErr error
	for _, addr := range candidates {
		c := redis.NewClient(&redis.Options{Addr: addr})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lastErr = c.Ping(ctx).Err()
		cancel()
		_ = c.Close()
		if lastErr == nil {
			return addr, nil
		}
	}
	return "", lastErr
}

// reserveRedisDB picks a database index so packages testing in parallel do not flush each
// other. TEST_REDIS_DB overrides; otherwise a lock key in DB 0 claims one of 1..15.
func reserveRedisDB(t testing.TB, addr string) int {
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
		t.Logf("ignoring invalid TEST_REDIS_DB=%q", v)
	}

	meta := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
	for i := 1; i <= 15; i++ {
		key := fmt.Sprintf("opscrm:testutil:db_lock:%d", i)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		ok, err := meta.SetNX(ctx, key, os.Getpid(), 30*time.Minute).Result()
		cancel()
		if err != nil || !ok {
			continue
		}
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = meta.Del(ctx, key).Err()
			_ = meta.Close()
		})
		return i
	}
	_ = meta.Close()
	return 1
}
