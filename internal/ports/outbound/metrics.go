package outbound

import (
	"context"
	"time"
)

// Submit and snapshot outcome labels recorded by MetricsRecorder.
const (
	OutcomeSuccess          = "success"
	OutcomeValidationError  = "validation_error"
	OutcomeDuplicateDish    = "duplicate_dish"
	OutcomeStoreUnavailable = "store_unavailable"
	OutcomeVersionConflict  = "version_conflict"
)

// MetricsRecorder receives operation outcomes for monitoring. Implementations
// must be safe for concurrent use and must never fail the operation they
// observe.
type MetricsRecorder interface {
	// RecordSubmit records one submit attempt with its outcome label.
	RecordSubmit(ctx context.Context, outcome string, duration time.Duration)

	// RecordSnapshot records one snapshot read with its outcome label and
	// the number of rows returned.
	RecordSnapshot(ctx context.Context, outcome string, duration time.Duration, rows int)
}
