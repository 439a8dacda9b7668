// Package redis holds the Redis-backed adapters: staff sessions live here.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/target/opscrm-api/internal/domain/auth"
)

// DefaultSessionPrefix namespaces session keys in a shared Redis.
const DefaultSessionPrefix = "opscrm:session:"

// ErrNotFound is returned for unknown, expired or unreadable-role sessions.
var ErrNotFound = errors.New("session not found")

// SessionStore keeps sessions as JSON values whose key TTL matches the session
// expiry, so Redis evicts them on its own.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return NewSessionStoreWithPrefix(client, DefaultSessionPrefix)
}

func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	return &SessionStore{client: client, prefix: prefix, now: time.Now}
}

func (s *SessionStore) key(id string) string { return s.prefix + id }

func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	switch {
	case sess.ID == "":
		return errors.New("session ID cannot be empty")
	case !sess.Role.Valid():
		return fmt.Errorf("session role %q is not a known role", sess.Role)
	}

	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errors.New("session is expired")
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, s.key(sess.ID), payload, ttl).Err()
}

// Get drops stale entries it finds: past expiry, or carrying a role that no
// longer exists.
func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ErrNotFound
	}

	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return domainauth.Session{}, ErrNotFound
	case err != nil:
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	if sess.Role.Valid() && s.now().Before(sess.ExpiresAt) {
		return sess, nil
	}
	if err := s.Delete(ctx, id); err != nil {
		return domainauth.Session{}, fmt.Errorf("cleanup stale session: %w", err)
	}
	return domainauth.Session{}, ErrNotFound
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.client.Del(ctx, s.key(id)).Err()
}
