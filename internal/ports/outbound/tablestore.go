// Package outbound contains the secondary/outbound ports.
// These interfaces are implemented by infrastructure adapters.
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/raneja-ux/potluck-app/internal/domain/entity"
)

// ErrVersionConflict is returned by VersionedTableStore.WriteVersioned when
// the supplied version token no longer matches the stored table. Nothing was
// written; the caller re-reads and retries.
var ErrVersionConflict = errors.New("table version conflict")

// TableStore is the persistence port for the sign-up sheet. The contract is
// deliberately primitive: the table is read whole and written whole, and no
// compare-and-swap is assumed. Concurrent read-modify-write cycles through a
// plain TableStore can lose updates; stores that can do better advertise it
// through the optional capability interfaces below.
type TableStore interface {
	// Read returns the full table in stored row order. freshness is a
	// staleness hint: 0 demands a fresh read, a positive duration permits
	// serving a cached copy at most that old. Adapters without a cache
	// ignore it. An empty or not-yet-created backing table reads as an
	// empty slice, not an error; adapters whose column layout is data
	// (a sheet header row) read a table with unlocatable required columns
	// the same way. Missing optional fields surface as "".
	Read(ctx context.Context, freshness time.Duration) ([]entity.Entry, error)

	// Write replaces the entire table with entries, preserving their order.
	Write(ctx context.Context, entries []entity.Entry) error

	// InvalidateCache drops any cached copy of the table. Advisory; no-op
	// for adapters that hold no cache.
	InvalidateCache(ctx context.Context)
}

// AtomicAppender is an optional TableStore capability. Stores that can
// insert a single row under a uniqueness guarantee implement it; callers
// prefer it over the read-check-write cycle because the duplicate check and
// the insert happen atomically in the store.
type AtomicAppender interface {
	// Append inserts exactly one entry at the end of the table. A dish key
	// conflict returns entity.ErrDuplicateDish and writes nothing.
	Append(ctx context.Context, e entity.Entry) error
}

// VersionedTableStore is an optional TableStore capability. Reads carry an
// opaque version token and writes are conditional on it, which lets callers
// detect a concurrent writer instead of silently overwriting it.
type VersionedTableStore interface {
	// ReadVersioned returns the full table and its current version token.
	ReadVersioned(ctx context.Context) ([]entity.Entry, string, error)

	// WriteVersioned replaces the table only if version still matches the
	// stored state. A stale token returns ErrVersionConflict and writes
	// nothing.
	WriteVersioned(ctx context.Context, entries []entity.Entry, version string) error
}

// Pinger is implemented by stores that can verify backend connectivity
// without reading the table.
type Pinger interface {
	Ping(ctx context.Context) error
}
