package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/raneja-ux/potluck-app/internal/domain/entity"
)

func TestTableStore_ReadEmpty(t *testing.T) {
	store := NewTableStore()

	entries, err := store.Read(context.Background(), 0)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Read() returned %d entries, want 0", len(entries))
	}
}

func TestTableStore_WriteThenRead(t *testing.T) {
	store := NewTableStore()
	in := []entity.Entry{
		{Name: "Alex", Category: entity.CategoryMains, Dish: "Lasagna"},
		{Name: "Sam", Category: entity.CategoryDessert, Dish: "Brownies"},
	}

	if err := store.Write(context.Background(), in); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	out, err := store.Read(context.Background(), 0)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Read() returned %d entries, want 2", len(out))
	}
	if out[0].Dish != "Lasagna" || out[1].Dish != "Brownies" {
		t.Errorf("Read() order = %q, %q, want Lasagna, Brownies", out[0].Dish, out[1].Dish)
	}
}

func TestTableStore_ReadReturnsCopy(t *testing.T) {
	store := NewTableStore()
	_ = store.Write(context.Background(), []entity.Entry{
		{Name: "Alex", Category: entity.CategoryMains, Dish: "Lasagna"},
	})

	out, _ := store.Read(context.Background(), 0)
	out[0].Dish = "Mutated"

	again, _ := store.Read(context.Background(), 0)
	if again[0].Dish != "Lasagna" {
		t.Errorf("stored dish = %q, want Lasagna (caller mutation must not leak)", again[0].Dish)
	}
}

func TestTableStore_Append(t *testing.T) {
	store := NewTableStore()
	_ = store.Write(context.Background(), []entity.Entry{
		{Name: "Alex", Category: entity.CategoryMains, Dish: "Lasagna"},
	})

	err := store.Append(context.Background(), entity.Entry{Name: "Sam", Category: entity.CategoryDessert, Dish: "Brownies"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	out, _ := store.Read(context.Background(), 0)
	if len(out) != 2 || out[1].Dish != "Brownies" {
		t.Errorf("table after append = %+v, want Brownies appended last", out)
	}
}

func TestTableStore_AppendDuplicateDish(t *testing.T) {
	store := NewTableStore()
	_ = store.Write(context.Background(), []entity.Entry{
		{Name: "Alex", Category: entity.CategoryMains, Dish: "Lasagna"},
	})

	err := store.Append(context.Background(), entity.Entry{Name: "Sam", Category: entity.CategoryDessert, Dish: " LASAGNA "})
	if !errors.Is(err, entity.ErrDuplicateDish) {
		t.Fatalf("Append() error = %v, want ErrDuplicateDish", err)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (duplicate must not be written)", store.Len())
	}
}

func TestTableStore_AppendConcurrentSameDish(t *testing.T) {
	store := NewTableStore()

	const goroutines = 16
	var wg sync.WaitGroup
	var successes, duplicates atomic32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Append(context.Background(), entity.Entry{
				Name: "Racer", Category: entity.CategoryMains, Dish: "Chili",
			})
			switch {
			case err == nil:
				successes.inc()
			case errors.Is(err, entity.ErrDuplicateDish):
				duplicates.inc()
			}
		}()
	}
	wg.Wait()

	if successes.get() != 1 {
		t.Errorf("successful appends = %d, want exactly 1", successes.get())
	}
	if duplicates.get() != goroutines-1 {
		t.Errorf("duplicate rejections = %d, want %d", duplicates.get(), goroutines-1)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestTableStore_InjectedErrors(t *testing.T) {
	store := NewTableStore()
	boom := errors.New("boom")

	store.FailReads(boom)
	if _, err := store.Read(context.Background(), 0); !errors.Is(err, boom) {
		t.Errorf("Read() error = %v, want injected error", err)
	}
	store.FailReads(nil)

	store.FailWrites(boom)
	if err := store.Write(context.Background(), nil); !errors.Is(err, boom) {
		t.Errorf("Write() error = %v, want injected error", err)
	}
	if err := store.Append(context.Background(), entity.Entry{Dish: "x"}); !errors.Is(err, boom) {
		t.Errorf("Append() error = %v, want injected error", err)
	}
}

// atomic32 is a tiny counter for concurrency tests.
type atomic32 struct {
	mu sync.Mutex
	n  int
}

func (a *atomic32) inc() {
	a.mu.Lock()
	a.n++
	a.mu.Unlock()
}

func (a *atomic32) get() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.n
}

func TestSnapshotCache_MissWhenEmpty(t *testing.T) {
	cache := NewSnapshotCache()

	rec, err := cache.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec != nil {
		t.Error("Get() hit on empty cache, want miss")
	}
}

func TestSnapshotCache_SetGetInvalidate(t *testing.T) {
	cache := NewSnapshotCache()
	in := []entity.Entry{{Name: "Alex", Category: entity.CategoryMains, Dish: "Lasagna"}}

	if err := cache.Set(context.Background(), in, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	rec, err := cache.Get(context.Background())
	if err != nil || rec == nil {
		t.Fatalf("Get() = %v, %v, want hit", rec, err)
	}
	if len(rec.Entries) != 1 || rec.Entries[0].Dish != "Lasagna" {
		t.Errorf("Get() entries = %+v, want the stored entry", rec.Entries)
	}
	if rec.StoredAt.IsZero() {
		t.Error("Get() StoredAt is zero, want set")
	}

	if err := cache.Invalidate(context.Background()); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if rec, _ := cache.Get(context.Background()); rec != nil {
		t.Error("Get() hit after Invalidate(), want miss")
	}
}

func TestSnapshotCache_Expiry(t *testing.T) {
	cache := NewSnapshotCache()

	current := time.Unix(1000, 0)
	cache.SetClock(func() time.Time { return current })

	_ = cache.Set(context.Background(), []entity.Entry{{Dish: "Lasagna"}}, 5*time.Second)

	current = current.Add(4 * time.Second)
	if rec, _ := cache.Get(context.Background()); rec == nil {
		t.Error("Get() miss before expiry, want hit")
	}

	current = current.Add(2 * time.Second)
	if rec, _ := cache.Get(context.Background()); rec != nil {
		t.Error("Get() hit after expiry, want miss")
	}
}
