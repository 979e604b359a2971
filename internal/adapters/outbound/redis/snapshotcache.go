// Package redis provides a Redis implementation of the SnapshotCache port.
//
// The full sign-up sheet is stored as one JSON value under a prefixed key
// with a TTL, so every server instance sees the same cached copy and
// invalidation takes effect everywhere at once.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/raneja-ux/potluck-app/internal/domain/entity"
	"github.com/raneja-ux/potluck-app/internal/ports/outbound"
)

// Compile-time check that SnapshotCache implements outbound.SnapshotCache.
var _ outbound.SnapshotCache = (*SnapshotCache)(nil)

// Config holds Redis cache configuration.
type Config struct {
	// Addr is the Redis server address (e.g., "localhost:6379")
	Addr string
	// Password for Redis authentication (empty for no auth)
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// TTL is used when Set is called without a positive expiry
	TTL time.Duration
	// KeyPrefix is prepended to the cache key
	KeyPrefix string
}

// ConfigDefaults returns sensible defaults for the snapshot cache.
func ConfigDefaults() Config {
	return Config{
		Addr:      "localhost:6379",
		Password:  "",
		DB:        0,
		TTL:       time.Minute,
		KeyPrefix: "potluck",
	}
}

// SnapshotCache is a Redis implementation of the outbound.SnapshotCache port.
type SnapshotCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	logger    *slog.Logger
}

// NewSnapshotCache creates a new Redis snapshot cache.
func NewSnapshotCache(cfg Config, logger *slog.Logger) (*SnapshotCache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if logger == nil {
		logger = slog.Default()
	}

	return &SnapshotCache{
		client:    client,
		ttl:       cfg.TTL,
		keyPrefix: cfg.KeyPrefix,
		logger:    logger.With("component", "redis-snapshot-cache"),
	}, nil
}

// Ping checks the Redis connection.
func (c *SnapshotCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *SnapshotCache) Close() error {
	return c.client.Close()
}

// key is the single cache key, in the format prefix:sheet.
func (c *SnapshotCache) key() string {
	return fmt.Sprintf("%s:sheet", c.keyPrefix)
}

// Get returns the cached sheet, or nil when the key is absent or expired.
func (c *SnapshotCache) Get(ctx context.Context) (*outbound.CachedTable, error) {
	data, err := c.client.Get(ctx, c.key()).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached sheet: %w", err)
	}

	var rec outbound.CachedTable
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt value behaves like a miss; the next Set replaces it.
		c.logger.Warn("dropping undecodable cached sheet", "error", err)
		return nil, nil
	}
	if rec.Entries == nil {
		rec.Entries = []entity.Entry{}
	}
	return &rec, nil
}

// Set stores the sheet stamped with the current time. A non-positive ttl
// falls back to the configured TTL.
func (c *SnapshotCache) Set(ctx context.Context, entries []entity.Entry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}

	rec := outbound.CachedTable{Entries: entries, StoredAt: time.Now()}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode sheet: %w", err)
	}

	if err := c.client.Set(ctx, c.key(), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache sheet: %w", err)
	}
	return nil
}

// Invalidate removes the cached sheet.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key()).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached sheet: %w", err)
	}
	return nil
}
