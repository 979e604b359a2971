//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/raneja-ux/potluck-app/internal/domain/entity"
)

// setupPostgres creates a PostgreSQL container and returns a connected store.
func setupPostgres(t *testing.T) (*TableStore, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	// Wait for connection
	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	store, err := NewTableStore(db, nil)
	if err != nil {
		t.Fatalf("failed to create table store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	cleanup := func() {
		db.Close()
		container.Terminate(ctx)
	}

	return store, cleanup
}

func TestMigrate_IsIdempotent(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()

	// setupPostgres already migrated once
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestRead_EmptyTable_ReturnsNoEntries(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()

	entries, err := store.Read(context.Background(), 0)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty sheet, got %d entries", len(entries))
	}
}

func TestAppend_AndRead_PreservesOrder(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()

	ctx := context.Background()
	want := []entity.Entry{
		{Name: "Alex", Category: entity.CategoryMains, Dish: "Chili", Note: "mild"},
		{Name: "Sam", Category: entity.CategoryDessert, Dish: "Brownies"},
		{Name: "Riley", Category: entity.CategoryDrinks, Dish: "Lemonade"},
	}

	for _, e := range want {
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append(%s) failed: %v", e.Dish, err)
		}
	}

	got, err := store.Read(ctx, 0)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestAppend_DuplicateDish_ReturnsError(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()

	ctx := context.Background()
	first := entity.Entry{Name: "Alex", Category: entity.CategoryMains, Dish: "Chili"}
	if err := store.Append(ctx, first); err != nil {
		t.Fatalf("first Append failed: %v", err)
	}

	second := entity.Entry{Name: "Sam", Category: entity.CategoryMains, Dish: "Chili"}
	err := store.Append(ctx, second)
	if !errors.Is(err, entity.ErrDuplicateDish) {
		t.Fatalf("expected ErrDuplicateDish, got %v", err)
	}

	entries, err := store.Read(ctx, 0)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 entry after rejected duplicate, got %d", len(entries))
	}
}

func TestAppend_DuplicateDishIgnoresCaseAndSpace(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()

	ctx := context.Background()
	if err := store.Append(ctx, entity.Entry{Name: "Alex", Category: entity.CategoryMains, Dish: "Mac and Cheese"}); err != nil {
		t.Fatalf("first Append failed: %v", err)
	}

	variants := []string{"mac and cheese", "MAC AND CHEESE", "  Mac and Cheese  "}
	for _, dish := range variants {
		err := store.Append(ctx, entity.Entry{Name: "Sam", Category: entity.CategoryMains, Dish: dish})
		if !errors.Is(err, entity.ErrDuplicateDish) {
			t.Errorf("Append(%q): expected ErrDuplicateDish, got %v", dish, err)
		}
	}
}

func TestWrite_ReplacesSheet(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()

	ctx := context.Background()
	if err := store.Append(ctx, entity.Entry{Name: "Alex", Category: entity.CategoryMains, Dish: "Chili"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	replacement := []entity.Entry{
		{Name: "Sam", Category: entity.CategorySidesApps, Dish: "Coleslaw"},
		{Name: "Riley", Category: entity.CategoryDessert, Dish: "Pie", Note: "apple"},
	}
	if err := store.Write(ctx, replacement); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := store.Read(ctx, 0)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	for i := range replacement {
		if got[i] != replacement[i] {
			t.Errorf("entry %d: expected %+v, got %+v", i, replacement[i], got[i])
		}
	}
}

func TestWrite_EmptySheet_ClearsTable(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()

	ctx := context.Background()
	if err := store.Append(ctx, entity.Entry{Name: "Alex", Category: entity.CategoryMains, Dish: "Chili"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if err := store.Write(ctx, nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	entries, err := store.Read(ctx, 0)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected cleared sheet, got %d entries", len(entries))
	}
}

func TestAppend_ConcurrentSameDish_OneWins(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()

	ctx := context.Background()
	const workers = 8

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			e := entity.Entry{
				Name:     fmt.Sprintf("Guest %d", n),
				Category: entity.CategoryDessert,
				Dish:     "Tiramisu",
			}
			results <- store.Append(ctx, e)
		}(i)
	}
	wg.Wait()
	close(results)

	var successes, duplicates int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, entity.ErrDuplicateDish):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if successes != 1 {
		t.Errorf("expected exactly 1 successful append, got %d", successes)
	}
	if duplicates != workers-1 {
		t.Errorf("expected %d duplicates, got %d", workers-1, duplicates)
	}

	entries, err := store.Read(ctx, 0)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 entry on the sheet, got %d", len(entries))
	}
}

func TestPing_Success(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()

	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}
