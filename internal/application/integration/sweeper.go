package integration

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/erp/catalog-sync/internal/domain/integration"
	"github.com/erp/catalog-sync/internal/infrastructure/logger"
	"github.com/erp/catalog-sync/internal/infrastructure/telemetry"
)

// DefaultSweepLookback is the trailing window a sweep re-examines
const DefaultSweepLookback = 2 * time.Hour

// ItemSyncer syncs a single item
type ItemSyncer interface {
	SyncItem(ctx context.Context, item *integration.Item) SyncOutcome
}

// Sweeper re-drives recently modified items that have no recent successful sync
type Sweeper struct {
	settings SettingsProvider
	items    integration.ItemRepository
	syncer   ItemSyncer
	lookback time.Duration
	metrics  *telemetry.SyncMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewSweeper creates a Sweeper. A non-positive lookback selects DefaultSweepLookback.
func NewSweeper(
	settings SettingsProvider,
	items integration.ItemRepository,
	syncer ItemSyncer,
	lookback time.Duration,
	metrics *telemetry.SyncMetrics,
	logger *zap.Logger,
) *Sweeper {
	if lookback <= 0 {
		lookback = DefaultSweepLookback
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		settings: settings,
		items:    items,
		syncer:   syncer,
		lookback: lookback,
		metrics:  metrics,
		logger:   logger.Named("sweeper"),
		now:      time.Now,
	}
}

// Sweep runs one catch-up pass. Items are synced one at a time and a failure
// on one item never stops the rest.
func (s *Sweeper) Sweep(ctx context.Context) integration.SweepReport {
	start := s.now()
	report := integration.SweepReport{Since: start.UTC().Add(-s.lookback)}

	ctx = logger.WithTrigger(ctx, TriggerSweep)
	ctx, span := telemetry.StartSpan(ctx, "catalog_sync.sweep")
	defer span.End()

	settings, err := s.settings.Current(ctx)
	if err != nil {
		s.logger.Error("Sweep aborted, settings unavailable", zap.Error(err))
		telemetry.RecordError(span, err)
		return report
	}
	if skip, ok := readiness(settings); !ok {
		s.logger.Debug("Sweep skipped", zap.String("reason", skip.Message))
		return report
	}

	items, err := s.items.FindPendingSync(ctx, report.Since)
	if err != nil {
		s.logger.Error("Sweep aborted, pending items query failed", zap.Error(err))
		telemetry.RecordError(span, err)
		return report
	}
	report.Selected = len(items)

	for i := range items {
		if ctx.Err() != nil {
			s.logger.Warn("Sweep interrupted", zap.Int("remaining", len(items)-i))
			break
		}
		outcome := s.syncOne(ctx, &items[i])
		report.Add(outcome.Synced(), outcome.Skipped())
	}

	report.Duration = s.now().Sub(start)
	s.metrics.RecordSweep(ctx, report.Synced, report.Failed, report.Skipped)
	span.SetAttributes(
		attribute.Int("sweep.selected", report.Selected),
		attribute.Int("sweep.failed", report.Failed),
	)
	telemetry.SetOK(span)
	return report
}

func (s *Sweeper) syncOne(ctx context.Context, item *integration.Item) (outcome SyncOutcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Sweep item panicked", zap.String("item_code", item.Code), zap.Any("panic", r))
			outcome = SyncOutcome{Action: ActionNone, Status: OutcomeFailed, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return s.syncer.SyncItem(ctx, item)
}
