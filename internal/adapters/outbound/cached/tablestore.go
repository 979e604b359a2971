// Package cached wraps a TableStore with a read-through snapshot cache.
//
// Reads with a positive freshness hint are served from the cache when the
// cached copy is younger than the hint; a zero hint always goes to the
// backend. Writes pass through and invalidate the cache, so the next read
// sees the new row. Cache failures degrade to backend reads, never to
// request failures.
//
// Wrapping erases the inner store's optional capabilities (atomic append,
// versioned writes); callers then take the whole-table write path. Put it
// in front of plain backends like the sheets adapter, not in front of
// postgres or s3.
package cached

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raneja-ux/potluck-app/internal/domain/entity"
	"github.com/raneja-ux/potluck-app/internal/ports/outbound"
)

// Compile-time checks that TableStore implements the outbound ports.
var _ outbound.TableStore = (*TableStore)(nil)
var _ outbound.Pinger = (*TableStore)(nil)

// Config holds configuration for the cached table store.
type Config struct {
	// TTL is how long a cached copy is kept at most, independent of the
	// per-read freshness hints. Defaults to 30 seconds.
	TTL time.Duration

	// Logger is the structured logger for the adapter.
	Logger *slog.Logger
}

// ConfigDefaults returns a config with default values.
func ConfigDefaults() Config {
	return Config{
		TTL: 30 * time.Second,
	}
}

// TableStore is a caching decorator around another table store.
type TableStore struct {
	config Config
	inner  outbound.TableStore
	cache  outbound.SnapshotCache
	logger *slog.Logger

	// now is swappable for freshness tests.
	now func() time.Time
}

// NewTableStore wraps inner with the given snapshot cache.
func NewTableStore(config Config, inner outbound.TableStore, cache outbound.SnapshotCache) (*TableStore, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner store cannot be nil")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache cannot be nil")
	}
	if config.TTL <= 0 {
		config.TTL = 30 * time.Second
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &TableStore{
		config: config,
		inner:  inner,
		cache:  cache,
		logger: logger.With("component", "cached-tablestore"),
		now:    time.Now,
	}, nil
}

// Read serves from the cache when the cached copy is younger than the
// freshness hint, otherwise reads the backend and repopulates the cache.
func (s *TableStore) Read(ctx context.Context, freshness time.Duration) ([]entity.Entry, error) {
	if freshness > 0 {
		rec, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("cache read failed, falling back to backend", "error", err)
		} else if rec != nil && s.now().Sub(rec.StoredAt) <= freshness {
			return rec.Entries, nil
		}
	}

	entries, err := s.inner.Read(ctx, freshness)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, entries, s.config.TTL); err != nil {
		s.logger.Warn("cache write failed", "error", err)
	}
	return entries, nil
}

// Write passes through to the backend and invalidates the cached copy.
func (s *TableStore) Write(ctx context.Context, entries []entity.Entry) error {
	if err := s.inner.Write(ctx, entries); err != nil {
		return err
	}
	s.InvalidateCache(ctx)
	return nil
}

// InvalidateCache drops the cached copy and forwards the hint to the
// backend.
func (s *TableStore) InvalidateCache(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("cache invalidation failed", "error", err)
	}
	s.inner.InvalidateCache(ctx)
}

// Ping probes the backend directly, bypassing the cache. A cached copy must
// never mask an unreachable backend.
func (s *TableStore) Ping(ctx context.Context) error {
	if pinger, ok := s.inner.(outbound.Pinger); ok {
		return pinger.Ping(ctx)
	}
	_, err := s.inner.Read(ctx, 0)
	return err
}

// SetClock swaps the time source (for testing).
func (s *TableStore) SetClock(now func() time.Time) {
	s.now = now
}
