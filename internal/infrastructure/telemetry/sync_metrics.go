package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Attribute keys shared by the sync metrics
var (
	AttrAction  = attribute.Key("sync.action")
	AttrStatus  = attribute.Key("sync.status")
	AttrTrigger = attribute.Key("sync.trigger")
	AttrResult  = attribute.Key("sweep.result")
)

// SyncMetrics holds the catalog sync instruments. A nil *SyncMetrics records nothing.
type SyncMetrics struct {
	attempts   metric.Int64Counter
	duration   metric.Float64Histogram
	sweepItems metric.Int64Counter
	sweepRuns  metric.Int64Counter
}

var syncDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// NewSyncMetrics creates the sync instruments on the given meter.
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	var (
		m    SyncMetrics
		errs []error
		err  error
	)
	m.attempts, err = meter.Int64Counter("sync_attempts_total",
		metric.WithDescription("Item sync attempts by action and outcome"),
		metric.WithUnit("{attempt}"))
	errs = append(errs, err)
	m.duration, err = meter.Float64Histogram("sync_duration_seconds",
		metric.WithDescription("Duration of a single item sync including the remote call"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(syncDurationBuckets...))
	errs = append(errs, err)
	m.sweepItems, err = meter.Int64Counter("sweep_items_total",
		metric.WithDescription("Items processed by catch-up sweeps by result"),
		metric.WithUnit("{item}"))
	errs = append(errs, err)
	m.sweepRuns, err = meter.Int64Counter("sweep_runs_total",
		metric.WithDescription("Catch-up sweep runs"),
		metric.WithUnit("{run}"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("sync metrics: %w", err)
	}
	return &m, nil
}

// RecordAttempt records one SyncItem outcome.
func (m *SyncMetrics) RecordAttempt(ctx context.Context, action, status, trigger string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(AttrAction.String(action), AttrStatus.String(status), AttrTrigger.String(trigger))
	m.attempts.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordSweep records the totals of one sweep run.
func (m *SyncMetrics) RecordSweep(ctx context.Context, synced, failed, skipped int) {
	if m == nil {
		return
	}
	m.sweepRuns.Add(ctx, 1)
	for result, n := range map[string]int{"synced": synced, "failed": failed, "skipped": skipped} {
		m.sweepItems.Add(ctx, int64(n), metric.WithAttributes(AttrResult.String(result)))
	}
}
