package integration

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrSyncLogInvalidItemCode = errors.New("integration: sync log item code is required")

// SyncStatus is the outcome recorded for a sync attempt
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "Success"
	SyncStatusError   SyncStatus = "Error"
)

// IsValid returns true if the status is one of the two stored values
func (s SyncStatus) IsValid() bool {
	return s == SyncStatusSuccess || s == SyncStatusError
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// NormalizeSyncStatus collapses any status label into Success or Error.
// Legacy labels such as "Failed" become Error.
func NormalizeSyncStatus(status string) SyncStatus {
	if strings.EqualFold(strings.TrimSpace(status), string(SyncStatusSuccess)) {
		return SyncStatusSuccess
	}
	return SyncStatusError
}

// SyncLogEntry is one immutable record of a sync attempt
type SyncLogEntry struct {
	ID              uuid.UUID
	ItemCode        string
	Status          SyncStatus
	RemoteProductID string
	ErrorMessage    string
	SyncedAt        time.Time
}

// NewSyncLogEntry builds a ledger entry. A zero syncedAt is replaced by the current time.
func NewSyncLogEntry(itemCode, status, remoteProductID, errorMessage string, syncedAt time.Time) (*SyncLogEntry, error) {
	itemCode = strings.TrimSpace(itemCode)
	if itemCode == "" {
		return nil, ErrSyncLogInvalidItemCode
	}
	if syncedAt.IsZero() {
		syncedAt = time.Now()
	}
	return &SyncLogEntry{
		ID:              uuid.New(),
		ItemCode:        itemCode,
		Status:          NormalizeSyncStatus(status),
		RemoteProductID: remoteProductID,
		ErrorMessage:    errorMessage,
		SyncedAt:        syncedAt.UTC(),
	}, nil
}

// IsSuccess reports whether the entry records a successful sync
func (e *SyncLogEntry) IsSuccess() bool {
	return e.Status == SyncStatusSuccess
}

// SyncLogRepository persists ledger entries. It has no update or delete.
type SyncLogRepository interface {
	Append(ctx context.Context, entry *SyncLogEntry) error
	// FindMostRecentSuccess returns nil, nil when the item has never synced successfully
	FindMostRecentSuccess(ctx context.Context, itemCode string) (*SyncLogEntry, error)
	// FindByItem returns entries newest first
	FindByItem(ctx context.Context, itemCode string, limit int) ([]SyncLogEntry, error)
}
