// snapshotcache.go provides an in-memory implementation of SnapshotCache.
//
// The cached copy carries its write time and an expiry; expired copies read
// as a miss. For multi-process deployments use the redis adapter instead.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/raneja-ux/potluck-app/internal/domain/entity"
	"github.com/raneja-ux/potluck-app/internal/ports/outbound"
)

// Compile-time check that SnapshotCache implements outbound.SnapshotCache.
var _ outbound.SnapshotCache = (*SnapshotCache)(nil)

// SnapshotCache is an in-memory implementation of the snapshot cache port.
type SnapshotCache struct {
	mu        sync.RWMutex
	cached    *outbound.CachedTable
	expiresAt time.Time

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewSnapshotCache creates an empty in-memory snapshot cache.
func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{now: time.Now}
}

// Get returns the cached copy, or nil when empty or expired.
func (c *SnapshotCache) Get(ctx context.Context) (*outbound.CachedTable, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cached == nil || c.now().After(c.expiresAt) {
		return nil, nil
	}

	entries := make([]entity.Entry, len(c.cached.Entries))
	copy(entries, c.cached.Entries)
	return &outbound.CachedTable{Entries: entries, StoredAt: c.cached.StoredAt}, nil
}

// Set stores a copy of entries with the current time, kept for at most ttl.
func (c *SnapshotCache) Set(ctx context.Context, entries []entity.Entry, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]entity.Entry, len(entries))
	copy(stored, entries)
	c.cached = &outbound.CachedTable{Entries: stored, StoredAt: c.now()}
	c.expiresAt = c.now().Add(ttl)
	return nil
}

// Invalidate drops the cached copy.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cached = nil
	return nil
}

// Close is a no-op for the in-memory cache.
func (c *SnapshotCache) Close() error {
	return nil
}

// SetClock swaps the time source (for testing).
func (c *SnapshotCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
