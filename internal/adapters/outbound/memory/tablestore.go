// tablestore.go provides an in-memory implementation of TableStore.
//
// This adapter keeps the full sign-up sheet in a mutex-guarded slice. It is
// the default backend for testing and development; data is lost on process
// restart. Because the duplicate check and the insert run under one lock,
// it also implements AtomicAppender.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/raneja-ux/potluck-app/internal/domain/entity"
	"github.com/raneja-ux/potluck-app/internal/ports/outbound"
)

// Compile-time checks that TableStore implements the outbound ports.
var _ outbound.TableStore = (*TableStore)(nil)
var _ outbound.AtomicAppender = (*TableStore)(nil)
var _ outbound.Pinger = (*TableStore)(nil)

// TableStore is an in-memory implementation of the table store port.
type TableStore struct {
	mu      sync.RWMutex
	entries []entity.Entry

	readErr  error
	writeErr error
}

// NewTableStore creates an empty in-memory table store.
func NewTableStore() *TableStore {
	return &TableStore{
		entries: make([]entity.Entry, 0),
	}
}

// Read returns a copy of the table in stored order. The freshness hint is
// ignored; there is no cache in front of process memory.
func (s *TableStore) Read(ctx context.Context, freshness time.Duration) ([]entity.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.readErr != nil {
		return nil, s.readErr
	}

	out := make([]entity.Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Write replaces the table with a copy of entries.
func (s *TableStore) Write(ctx context.Context, entries []entity.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}

	s.entries = make([]entity.Entry, len(entries))
	copy(s.entries, entries)
	return nil
}

// Append inserts one entry at the end of the table. The dish key check and
// the insert happen under the write lock, so concurrent appends cannot both
// claim the same dish.
func (s *TableStore) Append(ctx context.Context, e entity.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}

	if entity.ContainsDish(s.entries, e.Dish) {
		return entity.ErrDuplicateDish
	}
	s.entries = append(s.entries, e)
	return nil
}

// InvalidateCache is a no-op; nothing is cached.
func (s *TableStore) InvalidateCache(ctx context.Context) {}

// Ping always succeeds unless reads are failed for testing.
func (s *TableStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readErr
}

// Len returns the current row count (for testing).
func (s *TableStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Reset clears the table (for testing).
func (s *TableStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.entries[:0]
}

// FailReads makes subsequent reads return err; nil restores normal reads
// (for testing).
func (s *TableStore) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// FailWrites makes subsequent writes and appends return err; nil restores
// normal writes (for testing).
func (s *TableStore) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}
