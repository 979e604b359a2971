package outbound

import (
	"context"
	"time"

	"github.com/raneja-ux/potluck-app/internal/domain/entity"
)

// CachedTable is one cached copy of the full sign-up sheet together with the
// time it was stored. Readers compare StoredAt against their freshness
// budget before serving it.
type CachedTable struct {
	Entries  []entity.Entry `json:"entries"`
	StoredAt time.Time      `json:"storedAt"`
}

// SnapshotCache holds a short-lived copy of the full sign-up sheet. It backs
// the read-through table store decorator; the registry itself never talks to
// it directly.
type SnapshotCache interface {
	// Get returns the cached copy, or nil on a miss. A miss is not an
	// error.
	Get(ctx context.Context) (*CachedTable, error)

	// Set stores entries with the current time, keeping them at most ttl.
	Set(ctx context.Context, entries []entity.Entry, ttl time.Duration) error

	// Invalidate drops the cached copy, if any.
	Invalidate(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
