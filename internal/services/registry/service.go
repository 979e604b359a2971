// Package registry implements the sign-up sheet's core use cases: reading
// the shared list and inserting new entries under the one-dish-once rule.
// Dish identity is case-insensitive and trim-insensitive; the check runs at
// write time against every stored row.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/raneja-ux/potluck-app/internal/domain/entity"
	"github.com/raneja-ux/potluck-app/internal/ports/inbound"
	"github.com/raneja-ux/potluck-app/internal/ports/outbound"
)

// Compile-time checks that Service implements the inbound ports.
var _ inbound.SignupService = (*Service)(nil)
var _ inbound.HealthChecker = (*Service)(nil)

// ServiceConfig holds configuration for the registry service.
type ServiceConfig struct {
	// ReadFreshness bounds how stale a snapshot read may be. It is passed
	// to TableStore.Read as the freshness hint; submits always read with 0.
	// Defaults to 5 seconds.
	ReadFreshness time.Duration

	// WriteAttempts bounds the read-check-write cycles against a versioned
	// store before giving up. Defaults to 3.
	WriteAttempts int

	// Logger is the structured logger for the service.
	Logger *slog.Logger

	// Metrics receives operation outcomes. Optional; defaults to a no-op.
	Metrics outbound.MetricsRecorder
}

// ServiceConfigDefaults returns a config with default values.
func ServiceConfigDefaults() ServiceConfig {
	return ServiceConfig{
		ReadFreshness: 5 * time.Second,
		WriteAttempts: 3,
	}
}

// Service owns the sign-up sheet invariant. All writes go through Submit,
// which checks the candidate's dish against every stored row before adding
// it; reads go through Snapshot, which fails open.
type Service struct {
	config  ServiceConfig
	store   outbound.TableStore
	logger  *slog.Logger
	metrics outbound.MetricsRecorder

	// ready flips once the store has answered at least one call.
	// storeOK tracks whether the most recent store call succeeded.
	ready   atomic.Bool
	storeOK atomic.Bool
}

// NewService creates a new registry service over the given table store.
func NewService(config ServiceConfig, store outbound.TableStore) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if config.ReadFreshness < 0 {
		return nil, fmt.Errorf("readFreshness must be non-negative, got %v", config.ReadFreshness)
	}
	if config.ReadFreshness == 0 {
		config.ReadFreshness = 5 * time.Second
	}
	if config.WriteAttempts <= 0 {
		config.WriteAttempts = 3
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	s := &Service{
		config:  config,
		store:   store,
		logger:  logger.With("component", "registry"),
		metrics: metrics,
	}
	s.storeOK.Store(true)
	return s, nil
}

// Snapshot returns the full sheet in stored row order. When the store is
// unreachable it returns an empty, usable snapshot together with an
// ErrStoreUnavailable wrap, so callers can render an empty list and mark it
// transient instead of failing the page.
func (s *Service) Snapshot(ctx context.Context) (entity.Snapshot, error) {
	start := time.Now()

	rows, err := s.store.Read(ctx, s.config.ReadFreshness)
	if err != nil {
		s.markStoreFailure()
		s.logger.Warn("table read failed, serving empty snapshot", "error", err)
		s.metrics.RecordSnapshot(ctx, outbound.OutcomeStoreUnavailable, time.Since(start), 0)
		return entity.Snapshot{Entries: []entity.Entry{}}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	s.markStoreSuccess()
	s.metrics.RecordSnapshot(ctx, outbound.OutcomeSuccess, time.Since(start), len(rows))
	return entity.Snapshot{Entries: rows}, nil
}

// Submit validates candidate, checks its dish against every existing entry
// and appends it to the end of the sheet. Validation failures return a
// *entity.ValidationError before the store is touched. A dish already on
// the list returns entity.ErrDuplicateDish and writes nothing. Success is
// reported only after the store write completed; the cached table copy is
// invalidated so the next read sees the new row.
func (s *Service) Submit(ctx context.Context, candidate entity.Entry) error {
	start := time.Now()

	normalized, err := entity.NewEntry(candidate.Name, candidate.Category, candidate.Dish, candidate.Note)
	if err != nil {
		s.metrics.RecordSubmit(ctx, outbound.OutcomeValidationError, time.Since(start))
		return err
	}

	outcome, err := s.insert(ctx, normalized)
	s.metrics.RecordSubmit(ctx, outcome, time.Since(start))
	return err
}

// insert dispatches to the strongest write path the store supports.
func (s *Service) insert(ctx context.Context, e entity.Entry) (string, error) {
	switch store := s.store.(type) {
	case outbound.AtomicAppender:
		return s.insertAtomic(ctx, store, e)
	case outbound.VersionedTableStore:
		return s.insertVersioned(ctx, store, e)
	default:
		return s.insertOverwrite(ctx, e)
	}
}

// insertAtomic delegates the duplicate check to the store, which performs it
// atomically with the insert.
func (s *Service) insertAtomic(ctx context.Context, store outbound.AtomicAppender, e entity.Entry) (string, error) {
	if err := store.Append(ctx, e); err != nil {
		if errors.Is(err, entity.ErrDuplicateDish) {
			s.markStoreSuccess()
			return outbound.OutcomeDuplicateDish, entity.ErrDuplicateDish
		}
		s.markStoreFailure()
		s.logger.Warn("append failed", "dish", e.Dish, "error", err)
		return outbound.OutcomeStoreUnavailable, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	s.markStoreSuccess()
	s.store.InvalidateCache(ctx)
	s.logger.Info("entry added", "name", e.Name, "category", e.Category.String(), "dish", e.Dish)
	return outbound.OutcomeSuccess, nil
}

// insertVersioned runs the read-check-write cycle under a version token and
// retries when a concurrent writer got there first. A dish found on any
// attempt, including a retry after a conflict, is reported as a duplicate.
func (s *Service) insertVersioned(ctx context.Context, store outbound.VersionedTableStore, e entity.Entry) (string, error) {
	for attempt := 1; attempt <= s.config.WriteAttempts; attempt++ {
		rows, version, err := store.ReadVersioned(ctx)
		if err != nil {
			s.markStoreFailure()
			s.logger.Warn("versioned read failed", "error", err)
			return outbound.OutcomeStoreUnavailable, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}

		if entity.ContainsDish(rows, e.Dish) {
			s.markStoreSuccess()
			return outbound.OutcomeDuplicateDish, entity.ErrDuplicateDish
		}

		err = store.WriteVersioned(ctx, appendEntry(rows, e), version)
		if err == nil {
			s.markStoreSuccess()
			s.store.InvalidateCache(ctx)
			s.logger.Info("entry added", "name", e.Name, "category", e.Category.String(), "dish", e.Dish, "attempt", attempt)
			return outbound.OutcomeSuccess, nil
		}
		if !errors.Is(err, outbound.ErrVersionConflict) {
			s.markStoreFailure()
			s.logger.Warn("versioned write failed", "dish", e.Dish, "error", err)
			return outbound.OutcomeStoreUnavailable, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}

		s.logger.Debug("table changed under a concurrent writer, retrying", "attempt", attempt)
	}

	s.logger.Warn("giving up after repeated version conflicts", "dish", e.Dish, "attempts", s.config.WriteAttempts)
	return outbound.OutcomeVersionConflict, fmt.Errorf("%w: table kept changing after %d attempts", ErrStoreUnavailable, s.config.WriteAttempts)
}

// insertOverwrite is the plain whole-table path. Between the fresh read and
// the write below a concurrent submit can slip in; the later write then
// replaces the table and the earlier row is lost. The plain TableStore
// contract offers no conditional write, so the window cannot be closed
// here; stores that can close it implement AtomicAppender or
// VersionedTableStore and never take this path.
func (s *Service) insertOverwrite(ctx context.Context, e entity.Entry) (string, error) {
	rows, err := s.store.Read(ctx, 0)
	if err != nil {
		s.markStoreFailure()
		s.logger.Warn("read before write failed", "error", err)
		return outbound.OutcomeStoreUnavailable, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if entity.ContainsDish(rows, e.Dish) {
		s.markStoreSuccess()
		return outbound.OutcomeDuplicateDish, entity.ErrDuplicateDish
	}

	if err := s.store.Write(ctx, appendEntry(rows, e)); err != nil {
		s.markStoreFailure()
		s.logger.Warn("table write failed", "dish", e.Dish, "error", err)
		return outbound.OutcomeStoreUnavailable, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	s.markStoreSuccess()
	s.store.InvalidateCache(ctx)
	s.logger.Info("entry added", "name", e.Name, "category", e.Category.String(), "dish", e.Dish)
	return outbound.OutcomeSuccess, nil
}

// Ping verifies that the backing store is reachable. Stores without a cheap
// probe are pinged with a regular read.
func (s *Service) Ping(ctx context.Context) error {
	var err error
	if pinger, ok := s.store.(outbound.Pinger); ok {
		err = pinger.Ping(ctx)
	} else {
		_, err = s.store.Read(ctx, s.config.ReadFreshness)
	}

	if err != nil {
		s.markStoreFailure()
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	s.markStoreSuccess()
	return nil
}

// IsReady reports whether the store has answered at least once.
func (s *Service) IsReady() bool {
	return s.ready.Load()
}

// IsHealthy reports whether the most recent store call succeeded. A service
// that has not talked to the store yet counts as healthy.
func (s *Service) IsHealthy() bool {
	return s.storeOK.Load()
}

func (s *Service) markStoreSuccess() {
	s.storeOK.Store(true)
	s.ready.Store(true)
}

func (s *Service) markStoreFailure() {
	s.storeOK.Store(false)
}

// appendEntry returns a new slice with e as the last row, leaving rows
// untouched.
func appendEntry(rows []entity.Entry, e entity.Entry) []entity.Entry {
	next := make([]entity.Entry, len(rows), len(rows)+1)
	copy(next, rows)
	return append(next, e)
}

// noopMetrics discards all recordings.
type noopMetrics struct{}

func (noopMetrics) RecordSubmit(context.Context, string, time.Duration)        {}
func (noopMetrics) RecordSnapshot(context.Context, string, time.Duration, int) {}
