package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/erp/catalog-sync/internal/domain/integration"
	"github.com/erp/catalog-sync/internal/infrastructure/cache"
	"github.com/erp/catalog-sync/internal/infrastructure/logger"
	"github.com/erp/catalog-sync/internal/infrastructure/telemetry"
)

// Sync triggers, recorded on the context and in metrics
const (
	TriggerHook   = "hook"
	TriggerManual = "manual"
	TriggerBulk   = "bulk"
	TriggerSweep  = "sweep"
)

// SyncAction is the remote operation a sync performed
type SyncAction string

const (
	ActionCreate SyncAction = "create"
	ActionUpdate SyncAction = "update"
	ActionNone   SyncAction = "none"
)

// OutcomeStatus classifies the result of one item sync
type OutcomeStatus string

const (
	OutcomeSynced               OutcomeStatus = "synced"
	OutcomeFailed               OutcomeStatus = "failed"
	OutcomeSkippedDisabled      OutcomeStatus = "skipped_disabled"
	OutcomeSkippedNotConfigured OutcomeStatus = "skipped_not_configured"
	OutcomeSkippedNotEligible   OutcomeStatus = "skipped_not_eligible"
)

// ErrSuccessNotRecorded marks a synced outcome whose Success ledger entry
// could not be written. The next sync of the item creates again unless the
// ledger is repaired.
var ErrSuccessNotRecorded = errors.New("integration: remote sync succeeded but was not recorded")

// SyncOutcome is the result of SyncItem. Failures are carried in Err, never
// returned. A synced outcome carries Err only when it is degraded.
type SyncOutcome struct {
	Action   SyncAction
	Status   OutcomeStatus
	RemoteID string
	Err      error
	Message  string
}

// Synced reports whether the remote call succeeded
func (o SyncOutcome) Synced() bool {
	return o.Status == OutcomeSynced
}

// Degraded reports a remote success that the ledger does not know about
func (o SyncOutcome) Degraded() bool {
	return o.Synced() && o.Err != nil
}

// Skipped reports whether the sync was a deliberate no-op
func (o SyncOutcome) Skipped() bool {
	switch o.Status {
	case OutcomeSkippedDisabled, OutcomeSkippedNotConfigured, OutcomeSkippedNotEligible:
		return true
	}
	return false
}

// SyncServiceOption configures a SyncService
type SyncServiceOption func(*SyncService)

// WithMetrics records attempts on the given instruments
func WithMetrics(m *telemetry.SyncMetrics) SyncServiceOption {
	return func(s *SyncService) { s.metrics = m }
}

// WithBulkRate paces SyncAll to perSecond remote calls. Zero disables pacing.
func WithBulkRate(perSecond float64) SyncServiceOption {
	return func(s *SyncService) { s.bulkRate = perSecond }
}

// SyncService pushes ERP items to the remote catalog and records every attempt in the ledger
type SyncService struct {
	settings SettingsProvider
	items    integration.ItemRepository
	ledger   *integration.SyncLedger
	catalog  integration.RemoteCatalog
	loader   *SnapshotLoader
	mapper   *ProductMapper
	locker   *cache.KeyedLocker
	metrics  *telemetry.SyncMetrics
	bulkRate float64
	logger   *zap.Logger
}

// NewSyncService creates a SyncService
func NewSyncService(
	settings SettingsProvider,
	items integration.ItemRepository,
	ledger *integration.SyncLedger,
	catalog integration.RemoteCatalog,
	loader *SnapshotLoader,
	mapper *ProductMapper,
	logger *zap.Logger,
	opts ...SyncServiceOption,
) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SyncService{
		settings: settings,
		items:    items,
		ledger:   ledger,
		catalog:  catalog,
		loader:   loader,
		mapper:   mapper,
		locker:   cache.NewKeyedLocker(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncItem creates or updates the remote product for item.
// The most recent Success ledger entry decides between create and update.
func (s *SyncService) SyncItem(ctx context.Context, item *integration.Item) (outcome SyncOutcome) {
	if item == nil {
		return SyncOutcome{Action: ActionNone, Status: OutcomeFailed, Err: integration.ErrItemNotFound, Message: integration.ErrItemNotFound.Error()}
	}

	start := time.Now()
	trigger := logger.GetTrigger(ctx)
	if trigger == "" {
		trigger = TriggerManual
	}

	ctx, span := telemetry.StartSpan(ctx, "catalog_sync.sync_item",
		attribute.String("item.code", item.Code),
		telemetry.AttrTrigger.String(trigger),
	)
	defer span.End()

	base := s.logger
	if l, ok := ctx.Value(logger.LoggerKey).(*zap.Logger); ok {
		base = l
	}
	ctx, log := logger.WithItemCode(ctx, base, item.Code)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("sync panicked: %v", r)
			log.Error("Recovered from panic during sync", zap.Any("panic", r), zap.Stack("stack"))
			outcome = s.fail(ctx, log, item, ActionNone, err)
		}
		s.metrics.RecordAttempt(ctx, string(outcome.Action), string(outcome.Status), trigger, time.Since(start))
		span.SetAttributes(
			telemetry.AttrAction.String(string(outcome.Action)),
			telemetry.AttrStatus.String(string(outcome.Status)),
		)
		if outcome.Err != nil {
			telemetry.RecordError(span, outcome.Err)
		} else {
			telemetry.SetOK(span)
		}
	}()

	return s.syncItem(ctx, log, item)
}

func (s *SyncService) syncItem(ctx context.Context, log *zap.Logger, item *integration.Item) SyncOutcome {
	settings, err := s.settings.Current(ctx)
	if err != nil {
		log.Error("Failed to load sync settings", zap.Error(err))
		return SyncOutcome{Action: ActionNone, Status: OutcomeFailed, Err: err, Message: err.Error()}
	}
	if skip, ok := readiness(settings); !ok {
		log.Debug("Sync skipped", zap.String("status", string(skip.Status)))
		return skip
	}
	if !item.IsSyncEligible() {
		log.Debug("Sync skipped, item is not a sales item")
		return SyncOutcome{Action: ActionNone, Status: OutcomeSkippedNotEligible, Message: "item is not a sales item"}
	}

	unlock := s.locker.Lock(item.Code)
	defer unlock()

	prior, err := s.ledger.MostRecentSuccess(ctx, item.Code)
	if err != nil {
		return s.fail(ctx, log, item, ActionNone, err)
	}

	payload := s.mapper.ToRemotePayload(s.loader.Load(ctx, *item))
	creds := settings.Credentials()

	if remoteID := priorRemoteID(prior, item); remoteID != "" {
		return s.update(ctx, log, item, creds, remoteID, payload)
	}
	return s.create(ctx, log, item, creds, payload)
}

func (s *SyncService) create(ctx context.Context, log *zap.Logger, item *integration.Item, creds integration.Credentials, payload integration.RemoteProduct) SyncOutcome {
	remoteID, err := s.catalog.CreateProduct(ctx, creds, payload)
	if err != nil {
		return s.fail(ctx, log, item, ActionCreate, err)
	}

	recErr := s.recordSuccess(ctx, log, item.Code, remoteID)

	// ledger entry stays even if the item write fails
	if err := s.items.SetRemoteProductID(context.WithoutCancel(ctx), item.Code, remoteID); err != nil {
		log.Warn("Failed to store remote product id on item",
			zap.String("remote_id", remoteID),
			zap.Error(err),
		)
	} else {
		item.RemoteProductID = remoteID
	}

	log.Info("Created remote product", zap.String("remote_id", remoteID), zap.String("action", string(ActionCreate)))
	return SyncOutcome{
		Action:   ActionCreate,
		Status:   OutcomeSynced,
		RemoteID: remoteID,
		Err:      recErr,
		Message:  "created remote product " + remoteID,
	}
}

func (s *SyncService) update(ctx context.Context, log *zap.Logger, item *integration.Item, creds integration.Credentials, remoteID string, payload integration.RemoteProduct) SyncOutcome {
	if err := s.catalog.UpdateProduct(ctx, creds, remoteID, payload); err != nil {
		outcome := s.fail(ctx, log, item, ActionUpdate, err)
		outcome.RemoteID = remoteID
		return outcome
	}

	recErr := s.recordSuccess(ctx, log, item.Code, remoteID)

	log.Info("Updated remote product", zap.String("remote_id", remoteID), zap.String("action", string(ActionUpdate)))
	return SyncOutcome{
		Action:   ActionUpdate,
		Status:   OutcomeSynced,
		RemoteID: remoteID,
		Err:      recErr,
		Message:  "updated remote product " + remoteID,
	}
}

// recordSuccess writes the Success entry. A failure is returned wrapped in
// ErrSuccessNotRecorded and leaves the outcome synced.
func (s *SyncService) recordSuccess(ctx context.Context, log *zap.Logger, code, remoteID string) error {
	if _, err := s.ledger.Record(context.WithoutCancel(ctx), code, string(integration.SyncStatusSuccess), remoteID, ""); err != nil {
		log.Error("Failed to record successful sync", zap.String("remote_id", remoteID), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrSuccessNotRecorded, err)
	}
	return nil
}

// fail records an Error ledger entry and converts err into an outcome
func (s *SyncService) fail(ctx context.Context, log *zap.Logger, item *integration.Item, action SyncAction, err error) SyncOutcome {
	msg := err.Error()
	if _, recErr := s.ledger.Record(context.WithoutCancel(ctx), item.Code, string(integration.SyncStatusError), "", msg); recErr != nil {
		log.Error("Failed to record sync error", zap.Error(recErr))
	}

	fields := []zap.Field{zap.String("action", string(action)), zap.Error(err)}
	var rejection *integration.RemoteRejectionError
	if errors.As(err, &rejection) {
		fields = append(fields, zap.Int("status_code", rejection.StatusCode))
	}
	log.Error("Catalog sync failed", fields...)

	return SyncOutcome{Action: action, Status: OutcomeFailed, Err: err, Message: msg}
}

// OnItemSaved is the entry point for the host's item save hook.
// Failures are logged and recorded in the ledger only.
func (s *SyncService) OnItemSaved(ctx context.Context, item *integration.Item) {
	outcome := s.SyncItem(logger.WithTrigger(ctx, TriggerHook), item)
	if outcome.Status == OutcomeFailed {
		s.logger.Warn("Item save sync failed",
			zap.String("item_code", item.Code),
			zap.String("error", outcome.Message),
		)
	}
}

// SyncItemByCode runs a manual sync of one item and reports a readable result
func (s *SyncService) SyncItemByCode(ctx context.Context, code string) ManualSyncResult {
	ctx = logger.WithTrigger(ctx, TriggerManual)

	item, err := s.items.FindByCode(ctx, code)
	if errors.Is(err, integration.ErrItemNotFound) {
		return ManualSyncResult{Message: fmt.Sprintf("Item %s not found", code)}
	}
	if err != nil {
		s.logger.Error("Failed to load item for manual sync", zap.String("item_code", code), zap.Error(err))
		return ManualSyncResult{Message: fmt.Sprintf("Sync failed for %s: %v", code, err)}
	}

	outcome := s.SyncItem(ctx, item)
	result := ManualSyncResult{
		Success:  outcome.Synced(),
		Action:   outcome.Action,
		Status:   outcome.Status,
		RemoteID: outcome.RemoteID,
	}
	switch {
	case outcome.Degraded():
		result.Message = fmt.Sprintf("Sync successful for %s", code)
		result.Warning = outcome.Err.Error()
	case outcome.Synced():
		result.Message = fmt.Sprintf("Sync successful for %s", code)
	default:
		result.Message = fmt.Sprintf("Sync failed for %s: %s", code, outcome.Message)
	}
	return result
}

// ItemLogs returns the ledger entries of one item, newest first
func (s *SyncService) ItemLogs(ctx context.Context, code string, limit int) ([]SyncLogResponse, error) {
	entries, err := s.ledger.ListByItem(ctx, code, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync logs for %s: %w", code, err)
	}
	return ToSyncLogResponses(entries), nil
}

// SyncAll syncs every sales item, paced by the bulk rate limit
func (s *SyncService) SyncAll(ctx context.Context) (BulkSyncResult, error) {
	ctx = logger.WithTrigger(ctx, TriggerBulk)
	ctx, span := telemetry.StartSpan(ctx, "catalog_sync.sync_all")
	defer span.End()

	items, err := s.items.FindSalesItems(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return BulkSyncResult{}, fmt.Errorf("list sales items: %w", err)
	}

	var result BulkSyncResult
	settings, err := s.settings.Current(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return BulkSyncResult{}, err
	}
	if skip, ok := readiness(settings); !ok {
		result.SkippedCount = len(items)
		result.Message = bulkMessage(result) + " (" + skip.Message + ")"
		return result, nil
	}

	var limiter *rate.Limiter
	if s.bulkRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.bulkRate), 1)
	}

	for i := range items {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				s.logger.Warn("Bulk sync interrupted", zap.Int("remaining", len(items)-i), zap.Error(err))
				break
			}
		}
		outcome := s.SyncItem(ctx, &items[i])
		switch {
		case outcome.Synced():
			result.SuccessCount++
			if outcome.Degraded() {
				result.UnrecordedCount++
			}
		case outcome.Skipped():
			result.SkippedCount++
		default:
			result.ErrorCount++
		}
	}

	result.Message = bulkMessage(result)
	span.SetAttributes(
		attribute.Int("sync.success_count", result.SuccessCount),
		attribute.Int("sync.error_count", result.ErrorCount),
	)
	telemetry.SetOK(span)
	s.logger.Info("Bulk sync finished",
		zap.Int("success", result.SuccessCount),
		zap.Int("failed", result.ErrorCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("unrecorded", result.UnrecordedCount),
	)
	return result, nil
}

func bulkMessage(r BulkSyncResult) string {
	return fmt.Sprintf("Sync completed: %d successful, %d failed", r.SuccessCount, r.ErrorCount)
}

// readiness returns a skip outcome when sync is disabled or has no credential
func readiness(settings *integration.SyncSettings) (SyncOutcome, bool) {
	if !settings.Enabled {
		return SyncOutcome{Action: ActionNone, Status: OutcomeSkippedDisabled, Message: "catalog sync is disabled"}, false
	}
	if !settings.HasCredential() {
		return SyncOutcome{Action: ActionNone, Status: OutcomeSkippedNotConfigured, Message: "catalog sync credentials are not configured"}, false
	}
	return SyncOutcome{}, true
}

// priorRemoteID returns the id to update, or "" to create. Only a Success
// entry selects update; the id stored on the item fills in when that entry
// carries none.
func priorRemoteID(prior *integration.SyncLogEntry, item *integration.Item) string {
	if prior == nil {
		return ""
	}
	if prior.RemoteProductID != "" {
		return prior.RemoteProductID
	}
	return item.RemoteProductID
}
