package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/erp/catalog-sync/internal/domain/integration"
	"github.com/erp/catalog-sync/internal/infrastructure/persistence/models"
)

// GormSyncLogRepository implements integration.SyncLogRepository using GORM.
// Entries are only ever inserted.
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Append inserts a ledger entry
func (r *GormSyncLogRepository) Append(ctx context.Context, entry *integration.SyncLogEntry) error {
	model := models.SyncLogModelFromDomain(entry)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindMostRecentSuccess returns the newest Success entry, or nil when none exists
func (r *GormSyncLogRepository) FindMostRecentSuccess(ctx context.Context, itemCode string) (*integration.SyncLogEntry, error) {
	var logModels []models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Where("item_code = ? AND status = ?", itemCode, integration.SyncStatusSuccess).
		Order("synced_at DESC").
		Order("seq DESC").
		Limit(1).
		Find(&logModels).Error; err != nil {
		return nil, err
	}
	if len(logModels) == 0 {
		return nil, nil
	}
	return logModels[0].ToDomain(), nil
}

// FindByItem returns the item's entries newest first
func (r *GormSyncLogRepository) FindByItem(ctx context.Context, itemCode string, limit int) ([]integration.SyncLogEntry, error) {
	var logModels []models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Where("item_code = ?", itemCode).
		Order("synced_at DESC").
		Order("seq DESC").
		Limit(limit).
		Find(&logModels).Error; err != nil {
		return nil, err
	}
	entries := make([]integration.SyncLogEntry, len(logModels))
	for i := range logModels {
		entries[i] = *logModels[i].ToDomain()
	}
	return entries, nil
}

var _ integration.SyncLogRepository = (*GormSyncLogRepository)(nil)
