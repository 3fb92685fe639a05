package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qr-attendance/backend/internal/models"
)

const cacheKey = "events:list"

// JSONCache is the subset of the Redis client used for caching.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

// CachedStore serves the event list from Redis when present and falls back to the store.
// Cache failures are logged and never fail the request.
type CachedStore struct {
	store  Store
	cache  JSONCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedStore wraps store with a read-through cache.
func NewCachedStore(store Store, cache JSONCache, ttl time.Duration, logger *zap.Logger) *CachedStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedStore{store: store, cache: cache, ttl: ttl, logger: logger}
}

// List returns the cached list or loads and caches it.
func (s *CachedStore) List(ctx context.Context) ([]models.Event, error) {
	var cached []models.Event
	hit, err := s.cache.GetJSON(ctx, cacheKey, &cached)
	if err != nil {
		s.logger.Warn("events cache read failed", zap.Error(err))
	} else if hit {
		return cached, nil
	}

	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, cacheKey, list, s.ttl); err != nil {
		s.logger.Warn("events cache write failed", zap.Error(err))
	}
	return list, nil
}
