package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/target/opscrm-api/internal/domain/model"
)

// CacheRepository is the byte cache behind the template lookup. data.RedisCacheRepo
// implements it.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes keys from the cache.
	// Returns true if at least one key was deleted.
	Delete(ctx context.Context, keys ...string) (bool, error)

	// Incr atomically increments a counter and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// Counter reads a counter; a missing counter is 0.
	Counter(ctx context.Context, key string) (int64, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

// TemplateCacheService caches the active templates per service type.
//
// Entries are keyed by a per-service-type generation counter. Invalidate bumps the
// counter, so a reader that loaded stale rows before the bump writes them under a
// generation nobody reads anymore.
type TemplateCacheService struct {
	cache     CacheRepository
	templates ChecklistTemplateRepository
	ttl       time.Duration
	logger    *slog.Logger
}

// TemplateCacheConfig holds configuration for template caching.
type TemplateCacheConfig struct {
	TTL time.Duration `json:"ttl"`
}

// TemplateCacheServiceOptions bundles dependencies for NewTemplateCacheService.
type TemplateCacheServiceOptions struct {
	Cache     CacheRepository
	Templates ChecklistTemplateRepository
	Config    TemplateCacheConfig
	Logger    *slog.Logger
}

// DefaultTemplateCacheConfig returns a TemplateCacheConfig with sensible defaults.
func DefaultTemplateCacheConfig() TemplateCacheConfig {
	return TemplateCacheConfig{TTL: 10 * time.Minute}
}

// NewTemplateCacheService creates a new TemplateCacheService.
func NewTemplateCacheService(opts TemplateCacheServiceOptions) *TemplateCacheService {
	ttl := opts.Config.TTL
	if ttl <= 0 {
		ttl = DefaultTemplateCacheConfig().TTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateCacheService{
		cache:     opts.Cache,
		templates: opts.Templates,
		ttl:       ttl,
		logger:    logger.With("component", "template_cache"),
	}
}

// ListActive returns active templates for serviceType, reading through the cache.
// Cache failures degrade to a direct repository read.
func (s *TemplateCacheService) ListActive(ctx context.Context, serviceType string) ([]*model.ChecklistTemplate, error) {
	st := strings.ToLower(strings.TrimSpace(serviceType))

	gen, err := s.cache.Counter(ctx, s.genKey(st))
	if err != nil {
		s.logger.WarnContext(ctx, "template cache generation read failed", "service_type", st, "error", err)
		return s.templates.ListActiveByServiceType(ctx, st)
	}
	key := s.listKey(st, gen)

	if raw, gerr := s.cache.Get(ctx, key); gerr != nil {
		s.logger.WarnContext(ctx, "template cache read failed", "service_type", st, "error", gerr)
	} else if raw != nil {
		var out []*model.ChecklistTemplate
		if uerr := json.Unmarshal(raw, &out); uerr == nil {
			return out, nil
		}
		s.logger.WarnContext(ctx, "template cache entry corrupt", "key", key)
	}

	out, err := s.templates.ListActiveByServiceType(ctx, st)
	if err != nil {
		return nil, err
	}
	if raw, merr := json.Marshal(out); merr == nil {
		if serr := s.cache.Set(ctx, key, raw, s.ttl); serr != nil {
			s.logger.WarnContext(ctx, "template cache write failed", "key", key, "error", serr)
		}
	}
	return out, nil
}

// Invalidate drops cached listings for the given service types.
func (s *TemplateCacheService) Invalidate(ctx context.Context, serviceTypes ...string) error {
	seen := make(map[string]struct{}, len(serviceTypes))
	for _, raw := range serviceTypes {
		st := strings.ToLower(strings.TrimSpace(raw))
		if st == "" {
			continue
		}
		if _, ok := seen[st]; ok {
			continue
		}
		seen[st] = struct{}{}
		if _, err := s.cache.Incr(ctx, s.genKey(st)); err != nil {
			return fmt.Errorf("invalidate templates for %s: %w", st, err)
		}
	}
	return nil
}

func (s *TemplateCacheService) genKey(serviceType string) string {
	return "opscrm:templates:gen:" + serviceType
}

func (s *TemplateCacheService) listKey(serviceType string, gen int64) string {
	return fmt.Sprintf("opscrm:templates:active:%s:%d", serviceType, gen)
}
