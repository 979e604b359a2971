package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/raneja-ux/potluck-app/internal/ports/outbound"
)

// Compile-time check that Metrics implements the MetricsRecorder interface.
var _ outbound.MetricsRecorder = (*Metrics)(nil)

// Metrics implements the MetricsRecorder interface using OpenTelemetry.
type Metrics struct {
	submits         metric.Int64Counter
	submitLatency   metric.Float64Histogram
	snapshots       metric.Int64Counter
	snapshotLatency metric.Float64Histogram
	snapshotRows    metric.Int64Histogram
}

// NewMetrics creates a new OpenTelemetry metrics recorder.
// meterName should typically be the package name or service name.
func NewMetrics(meterName string) (*Metrics, error) {
	meter := otel.Meter(meterName)

	submits, err := meter.Int64Counter(
		"submits_total",
		metric.WithDescription("Total number of sign-up submissions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create submits_total counter: %w", err)
	}

	submitLatency, err := meter.Float64Histogram(
		"submit_duration_seconds",
		metric.WithDescription("Time taken to process a sign-up submission"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create submit_duration_seconds histogram: %w", err)
	}

	snapshots, err := meter.Int64Counter(
		"snapshots_total",
		metric.WithDescription("Total number of sheet snapshot reads by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshots_total counter: %w", err)
	}

	snapshotLatency, err := meter.Float64Histogram(
		"snapshot_duration_seconds",
		metric.WithDescription("Time taken to read a sheet snapshot"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot_duration_seconds histogram: %w", err)
	}

	snapshotRows, err := meter.Int64Histogram(
		"snapshot_rows",
		metric.WithDescription("Number of entries returned per snapshot read"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot_rows histogram: %w", err)
	}

	return &Metrics{
		submits:         submits,
		submitLatency:   submitLatency,
		snapshots:       snapshots,
		snapshotLatency: snapshotLatency,
		snapshotRows:    snapshotRows,
	}, nil
}

// RecordSubmit records one submit attempt with its outcome label.
func (m *Metrics) RecordSubmit(ctx context.Context, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.submits.Add(ctx, 1, attrs)
	m.submitLatency.Record(ctx, duration.Seconds(), attrs)
}

// RecordSnapshot records one snapshot read with its outcome label and row count.
func (m *Metrics) RecordSnapshot(ctx context.Context, outcome string, duration time.Duration, rows int) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.snapshots.Add(ctx, 1, attrs)
	m.snapshotLatency.Record(ctx, duration.Seconds(), attrs)
	m.snapshotRows.Record(ctx, int64(rows), attrs)
}
