// tablestore.go provides the PostgreSQL implementation of the TableStore port.
//
// The sheet lives in a single entries table. Reads return the whole table in
// insertion order and writes replace it transactionally. Append inserts one
// row and leans on a unique index over the normalized dish text, so two
// guests racing to claim the same dish cannot both land on the sheet.
//
// The schema is defined in schema.sql and applied via the Migrate() method.

package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/raneja-ux/potluck-app/internal/domain/entity"
	"github.com/raneja-ux/potluck-app/internal/ports/outbound"
)

//go:embed schema.sql
var schema string

// Compile-time checks that TableStore implements the outbound ports.
var (
	_ outbound.TableStore     = (*TableStore)(nil)
	_ outbound.AtomicAppender = (*TableStore)(nil)
	_ outbound.Pinger         = (*TableStore)(nil)
)

// TableStore is a PostgreSQL implementation of the outbound.TableStore port.
type TableStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTableStore creates a new PostgreSQL table store.
// Returns an error if the database connection is nil.
//
// Note: This function does not verify that the database connection is alive.
// Use Ping() if connection validation is needed.
func NewTableStore(db *sql.DB, logger *slog.Logger) (*TableStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TableStore{db: db, logger: logger}, nil
}

// closeRows closes database rows and logs any error.
func (s *TableStore) closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		s.logger.Warn("failed to close database rows", "error", err)
	}
}

// Migrate creates the entries table and its unique dish index if they don't exist.
func (s *TableStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Read returns every entry on the sheet in insertion order.
// The database holds the current copy, so the freshness hint is not used.
func (s *TableStore) Read(ctx context.Context, _ time.Duration) ([]entity.Entry, error) {
	query := `
		SELECT name, category, dish, note
		FROM entries
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}
	defer s.closeRows(rows)

	var entries []entity.Entry
	for rows.Next() {
		var e entity.Entry
		if err := rows.Scan(&e.Name, &e.Category, &e.Dish, &e.Note); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return entries, nil
}

// Write replaces the whole sheet in a single transaction.
func (s *TableStore) Write(ctx context.Context, entries []entity.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.logger.Warn("failed to rollback transaction", "error", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}

	if len(entries) > 0 {
		var sb strings.Builder
		sb.WriteString(`INSERT INTO entries (name, category, dish, note) VALUES `)

		args := make([]any, 0, len(entries)*4)
		for i, e := range entries {
			if i > 0 {
				sb.WriteString(", ")
			}
			baseIdx := i * 4
			sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d)",
				baseIdx+1, baseIdx+2, baseIdx+3, baseIdx+4))
			args = append(args, e.Name, string(e.Category), e.Dish, e.Note)
		}

		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("failed to insert entries: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Append inserts a single entry. The unique dish index rejects a duplicate
// that raced past the service's own check, reported as entity.ErrDuplicateDish.
func (s *TableStore) Append(ctx context.Context, e entity.Entry) error {
	query := `INSERT INTO entries (name, category, dish, note) VALUES ($1, $2, $3, $4)`
	_, err := s.db.ExecContext(ctx, query, e.Name, string(e.Category), e.Dish, e.Note)
	if isUniqueViolation(err) {
		return entity.ErrDuplicateDish
	}
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

// InvalidateCache is a no-op; the database always serves the current sheet.
func (s *TableStore) InvalidateCache(_ context.Context) {}

// Ping checks the database connection.
func (s *TableStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isUniqueViolation checks if the error is a PostgreSQL unique violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// Use pgx's structured error type to check SQLSTATE code directly
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
