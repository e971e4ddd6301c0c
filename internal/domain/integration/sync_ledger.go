package integration

import (
	"context"
	"fmt"
	"time"
)

// DefaultLedgerListLimit caps ListByItem when no limit is given
const DefaultLedgerListLimit = 50

// SyncLedger records sync attempts and answers create-or-update questions
type SyncLedger struct {
	repo SyncLogRepository
	now  func() time.Time
}

// NewSyncLedger creates a ledger over the given repository
func NewSyncLedger(repo SyncLogRepository) *SyncLedger {
	return &SyncLedger{repo: repo, now: time.Now}
}

// WithClock overrides the clock used to stamp entries
func (l *SyncLedger) WithClock(now func() time.Time) *SyncLedger {
	l.now = now
	return l
}

// Record appends an entry. The status is normalized to Success or Error.
func (l *SyncLedger) Record(ctx context.Context, itemCode, status, remoteProductID, errorMessage string) (*SyncLogEntry, error) {
	entry, err := NewSyncLogEntry(itemCode, status, remoteProductID, errorMessage, l.now())
	if err != nil {
		return nil, err
	}
	if err := l.repo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("integration: append sync log for %s: %w", entry.ItemCode, err)
	}
	return entry, nil
}

// MostRecentSuccess returns the newest Success entry for the item, or nil
func (l *SyncLedger) MostRecentSuccess(ctx context.Context, itemCode string) (*SyncLogEntry, error) {
	entry, err := l.repo.FindMostRecentSuccess(ctx, itemCode)
	if err != nil {
		return nil, fmt.Errorf("integration: lookup last success for %s: %w", itemCode, err)
	}
	return entry, nil
}

// ListByItem returns the item's entries newest first
func (l *SyncLedger) ListByItem(ctx context.Context, itemCode string, limit int) ([]SyncLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = DefaultLedgerListLimit
	}
	return l.repo.FindByItem(ctx, itemCode, limit)
}
