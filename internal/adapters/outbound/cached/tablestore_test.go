package cached

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/raneja-ux/potluck-app/internal/domain/entity"
	"github.com/raneja-ux/potluck-app/internal/ports/outbound"
)

// =============================================================================
// Mock Implementations
// =============================================================================

type mockBackend struct {
	mu         sync.Mutex
	rows       []entity.Entry
	readErr    error
	writeErr   error
	readCalls  int
	writeCalls int
}

func (m *mockBackend) Read(ctx context.Context, freshness time.Duration) ([]entity.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readCalls++
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := make([]entity.Entry, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func (m *mockBackend) Write(ctx context.Context, entries []entity.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeCalls++
	if m.writeErr != nil {
		return m.writeErr
	}
	m.rows = make([]entity.Entry, len(entries))
	copy(m.rows, entries)
	return nil
}

func (m *mockBackend) InvalidateCache(ctx context.Context) {}

type mockCache struct {
	mu              sync.Mutex
	rec             *outbound.CachedTable
	getErr          error
	setErr          error
	setCalls        int
	invalidateCalls int
}

func (m *mockCache) Get(ctx context.Context) (*outbound.CachedTable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.rec, nil
}

func (m *mockCache) Set(ctx context.Context, entries []entity.Entry, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	stored := make([]entity.Entry, len(entries))
	copy(stored, entries)
	m.rec = &outbound.CachedTable{Entries: stored, StoredAt: time.Now()}
	return nil
}

func (m *mockCache) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidateCalls++
	m.rec = nil
	return nil
}

func (m *mockCache) Close() error { return nil }

// =============================================================================
// Helper Functions
// =============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCachedStore(t *testing.T, backend *mockBackend, cache *mockCache) *TableStore {
	t.Helper()
	cfg := ConfigDefaults()
	cfg.Logger = testLogger()
	store, err := NewTableStore(cfg, backend, cache)
	if err != nil {
		t.Fatalf("NewTableStore() error = %v", err)
	}
	return store
}

// =============================================================================
// Tests: NewTableStore
// =============================================================================

func TestNewTableStore_NilArguments(t *testing.T) {
	if _, err := NewTableStore(ConfigDefaults(), nil, &mockCache{}); err == nil {
		t.Error("NewTableStore(nil inner), want error")
	}
	if _, err := NewTableStore(ConfigDefaults(), &mockBackend{}, nil); err == nil {
		t.Error("NewTableStore(nil cache), want error")
	}
}

// =============================================================================
// Tests: Read
// =============================================================================

func TestRead_ZeroFreshnessBypassesCache(t *testing.T) {
	backend := &mockBackend{rows: []entity.Entry{{Dish: "Fresh"}}}
	cache := &mockCache{rec: &outbound.CachedTable{
		Entries:  []entity.Entry{{Dish: "Stale"}},
		StoredAt: time.Now(),
	}}
	store := newCachedStore(t, backend, cache)

	rows, err := store.Read(context.Background(), 0)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Dish != "Fresh" {
		t.Errorf("Read(0) = %+v, want the backend copy", rows)
	}
	if backend.readCalls != 1 {
		t.Errorf("backend reads = %d, want 1", backend.readCalls)
	}
}

func TestRead_ServesYoungCachedCopy(t *testing.T) {
	backend := &mockBackend{rows: []entity.Entry{{Dish: "Fresh"}}}
	cache := &mockCache{}
	store := newCachedStore(t, backend, cache)

	current := time.Unix(1000, 0)
	store.SetClock(func() time.Time { return current })
	cache.rec = &outbound.CachedTable{
		Entries:  []entity.Entry{{Dish: "Cached"}},
		StoredAt: current.Add(-2 * time.Second),
	}

	rows, err := store.Read(context.Background(), 5*time.Second)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Dish != "Cached" {
		t.Errorf("Read() = %+v, want the cached copy", rows)
	}
	if backend.readCalls != 0 {
		t.Errorf("backend reads = %d, want 0", backend.readCalls)
	}
}

func TestRead_RefreshesWhenCachedCopyTooOld(t *testing.T) {
	backend := &mockBackend{rows: []entity.Entry{{Dish: "Fresh"}}}
	cache := &mockCache{}
	store := newCachedStore(t, backend, cache)

	current := time.Unix(1000, 0)
	store.SetClock(func() time.Time { return current })
	cache.rec = &outbound.CachedTable{
		Entries:  []entity.Entry{{Dish: "Cached"}},
		StoredAt: current.Add(-10 * time.Second),
	}

	rows, err := store.Read(context.Background(), 5*time.Second)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if rows[0].Dish != "Fresh" {
		t.Errorf("Read() = %+v, want the backend copy (cached one is older than the hint)", rows)
	}
	if cache.setCalls != 1 {
		t.Errorf("cache sets = %d, want 1 (repopulated)", cache.setCalls)
	}
}

func TestRead_CacheFailureFallsBackToBackend(t *testing.T) {
	backend := &mockBackend{rows: []entity.Entry{{Dish: "Fresh"}}}
	cache := &mockCache{getErr: errors.New("redis down")}
	store := newCachedStore(t, backend, cache)

	rows, err := store.Read(context.Background(), 5*time.Second)
	if err != nil {
		t.Fatalf("Read() error = %v (cache failures must not fail reads)", err)
	}
	if rows[0].Dish != "Fresh" {
		t.Errorf("Read() = %+v, want the backend copy", rows)
	}
}

func TestRead_BackendErrorPropagates(t *testing.T) {
	backend := &mockBackend{readErr: errors.New("io error")}
	store := newCachedStore(t, backend, &mockCache{})

	if _, err := store.Read(context.Background(), 0); err == nil {
		t.Fatal("Read() error = nil, want backend error")
	}
}

// =============================================================================
// Tests: Write and invalidation
// =============================================================================

func TestWrite_PassesThroughAndInvalidates(t *testing.T) {
	backend := &mockBackend{}
	cache := &mockCache{rec: &outbound.CachedTable{StoredAt: time.Now()}}
	store := newCachedStore(t, backend, cache)

	err := store.Write(context.Background(), []entity.Entry{{Dish: "Lasagna"}})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if backend.writeCalls != 1 {
		t.Errorf("backend writes = %d, want 1", backend.writeCalls)
	}
	if cache.invalidateCalls != 1 {
		t.Errorf("cache invalidations = %d, want 1", cache.invalidateCalls)
	}
}

func TestWrite_BackendFailureSkipsInvalidation(t *testing.T) {
	backend := &mockBackend{writeErr: errors.New("quota")}
	cache := &mockCache{}
	store := newCachedStore(t, backend, cache)

	if err := store.Write(context.Background(), nil); err == nil {
		t.Fatal("Write() error = nil, want backend error")
	}
	if cache.invalidateCalls != 0 {
		t.Errorf("cache invalidations = %d, want 0", cache.invalidateCalls)
	}
}

func TestInvalidateCache_DropsCachedCopy(t *testing.T) {
	backend := &mockBackend{}
	cache := &mockCache{rec: &outbound.CachedTable{StoredAt: time.Now()}}
	store := newCachedStore(t, backend, cache)

	store.InvalidateCache(context.Background())
	if cache.invalidateCalls != 1 {
		t.Errorf("cache invalidations = %d, want 1", cache.invalidateCalls)
	}
}

// =============================================================================
// Tests: Ping
// =============================================================================

type mockPingingBackend struct {
	mockBackend
	pingErr   error
	pingCalls int
}

func (m *mockPingingBackend) Ping(ctx context.Context) error {
	m.pingCalls++
	return m.pingErr
}

func TestPing_DelegatesToBackendPinger(t *testing.T) {
	backend := &mockPingingBackend{pingErr: errors.New("unreachable")}
	cache := &mockCache{rec: &outbound.CachedTable{StoredAt: time.Now()}}
	store := newCachedStore(t, backend, cache)

	if err := store.Ping(context.Background()); err == nil {
		t.Fatal("Ping() error = nil, want backend error (cache must not mask it)")
	}
	if backend.pingCalls != 1 {
		t.Errorf("backend pings = %d, want 1", backend.pingCalls)
	}
}

func TestPing_FallsBackToReadWithoutPinger(t *testing.T) {
	backend := &mockBackend{}
	store := newCachedStore(t, backend, &mockCache{})

	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if backend.readCalls != 1 {
		t.Errorf("backend reads = %d, want 1", backend.readCalls)
	}
}
