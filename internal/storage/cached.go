package storage

import (
	"context"
	"time"

	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/pkg/logger"
	"github.com/wonny/strawberry/pkg/metrics"
	"github.com/wonny/strawberry/pkg/redis"
)

// factCache is the part of redis.Cache the store uses
type factCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// CachedStore serves fact table reads from Redis and falls back to the
// wrapped store. Writes go to the wrapped store and then drop the
// symbol's cached entries and every cached screen.
type CachedStore struct {
	inner   contracts.TableStore
	cache   factCache
	metrics *metrics.Registry
	logger  *logger.Logger
}

// NewCachedStore wraps inner. A disabled Redis client makes it a pass-through.
func NewCachedStore(inner contracts.TableStore, cache *redis.Cache, m *metrics.Registry, log *logger.Logger) *CachedStore {
	return &CachedStore{inner: inner, cache: cache, metrics: m, logger: log.Module("storage")}
}

// Inner returns the wrapped store
func (s *CachedStore) Inner() contracts.TableStore {
	return s.inner
}

// Exists delegates to the wrapped store
func (s *CachedStore) Exists(ctx context.Context, table, symbol string) (bool, error) {
	return s.inner.Exists(ctx, table, symbol)
}

// Read returns the cached fact table when present. Other tables bypass the cache.
func (s *CachedStore) Read(ctx context.Context, table, symbol string) (*contracts.RawTable, error) {
	if table != contracts.TableFacts {
		return s.inner.Read(ctx, table, symbol)
	}

	var cached contracts.RawTable
	found, err := s.cache.Get(ctx, redis.FactKey(symbol), &cached)
	if err == nil && found {
		s.metrics.RecordCache("facts", true)
		return &cached, nil
	}
	s.metrics.RecordCache("facts", false)

	t, err := s.inner.Read(ctx, table, symbol)
	if err != nil {
		return nil, err
	}
	// a failed cache write still serves the table
	_ = s.cache.Set(ctx, redis.FactKey(symbol), t, redis.TTLDaily)
	return t, nil
}

// Write stores the table and invalidates the cached views that depend on it.
// Only the inner write decides the result; a failed invalidation is logged
// and the stale entries expire with their TTL.
func (s *CachedStore) Write(ctx context.Context, t *contracts.RawTable) error {
	if err := s.inner.Write(ctx, t); err != nil {
		return err
	}
	if t.Name != contracts.TableFacts {
		return nil
	}

	log := s.logger.WithTicker(t.Symbol)
	if err := s.cache.Delete(ctx, redis.FactKey(t.Symbol), redis.FactLatestKey(t.Symbol)); err != nil {
		log.WithError(err).Warn("Failed to invalidate cached facts")
	}
	if err := s.cache.DeletePrefix(ctx, redis.ScreenerKey("")); err != nil {
		log.WithError(err).Warn("Failed to invalidate cached screens")
	}
	return nil
}

// Symbols delegates to the wrapped store when it can enumerate partitions
func (s *CachedStore) Symbols(ctx context.Context, table string) ([]string, error) {
	idx, err := index(s.inner)
	if err != nil {
		return nil, err
	}
	return idx.Symbols(ctx, table)
}

// LastUpdate delegates to the wrapped store
func (s *CachedStore) LastUpdate(ctx context.Context, table, symbol string) (time.Time, error) {
	idx, err := index(s.inner)
	if err != nil {
		return time.Time{}, err
	}
	return idx.LastUpdate(ctx, table, symbol)
}
