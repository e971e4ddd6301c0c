package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/erp/catalog-sync/internal/domain/integration"
	"github.com/erp/catalog-sync/internal/infrastructure/persistence/models"
)

// GormItemRepository implements integration.ItemRepository using GORM
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindByCode finds an item by its code
func (r *GormItemRepository) FindByCode(ctx context.Context, code string) (*integration.Item, error) {
	var model models.ItemModel
	if err := r.db.WithContext(ctx).First(&model, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrItemNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindSalesItems returns every sales-eligible item ordered by code
func (r *GormItemRepository) FindSalesItems(ctx context.Context) ([]integration.Item, error) {
	var itemModels []models.ItemModel
	if err := r.db.WithContext(ctx).
		Where("is_sales_item = ?", true).
		Order("code ASC").
		Find(&itemModels).Error; err != nil {
		return nil, err
	}
	return toDomainItems(itemModels), nil
}

// FindPendingSync returns sales-eligible items modified since the cutoff
// that have no successful sync recorded since the same cutoff
func (r *GormItemRepository) FindPendingSync(ctx context.Context, since time.Time) ([]integration.Item, error) {
	since = since.UTC()
	var itemModels []models.ItemModel
	if err := r.db.WithContext(ctx).
		Where("is_sales_item = ?", true).
		Where("modified_at >= ?", since).
		Where(`NOT EXISTS (
			SELECT 1 FROM sync_logs sl
			WHERE sl.item_code = items.code
			AND sl.status = ?
			AND sl.synced_at >= ?
		)`, integration.SyncStatusSuccess, since).
		Order("modified_at ASC").
		Find(&itemModels).Error; err != nil {
		return nil, err
	}
	return toDomainItems(itemModels), nil
}

// SetRemoteProductID stores the remote product id without touching modified_at
func (r *GormItemRepository) SetRemoteProductID(ctx context.Context, code, remoteProductID string) error {
	result := r.db.WithContext(ctx).
		Model(&models.ItemModel{}).
		Where("code = ?", code).
		UpdateColumn("remote_product_id", remoteProductID)
	if result.Error != nil {
		return fmt.Errorf("set remote product id for %s: %w", code, result.Error)
	}
	if result.RowsAffected == 0 {
		return integration.ErrItemNotFound
	}
	return nil
}

func toDomainItems(itemModels []models.ItemModel) []integration.Item {
	items := make([]integration.Item, len(itemModels))
	for i := range itemModels {
		items[i] = *itemModels[i].ToDomain()
	}
	return items
}

// GormItemPriceReader implements integration.ItemPriceReader
type GormItemPriceReader struct {
	db *gorm.DB
}

// NewGormItemPriceReader creates a new GormItemPriceReader
func NewGormItemPriceReader(db *gorm.DB) *GormItemPriceReader {
	return &GormItemPriceReader{db: db}
}

// PriceListRate returns the most recently updated selling rate of the item
func (r *GormItemPriceReader) PriceListRate(ctx context.Context, itemCode string) (decimal.Decimal, bool, error) {
	var model models.ItemPriceModel
	err := r.db.WithContext(ctx).
		Where("item_code = ? AND selling = ?", itemCode, true).
		Order("updated_at DESC").
		Order("id DESC").
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	return model.PriceListRate, true, nil
}

// GormStockReader implements integration.StockReader over the bins table
type GormStockReader struct {
	db *gorm.DB
}

// NewGormStockReader creates a new GormStockReader
func NewGormStockReader(db *gorm.DB) *GormStockReader {
	return &GormStockReader{db: db}
}

type stockTotal struct {
	Total    decimal.Decimal
	BinCount int64
}

// ActualQty sums the on-hand quantity across all warehouses
func (r *GormStockReader) ActualQty(ctx context.Context, itemCode string) (decimal.Decimal, bool, error) {
	var result stockTotal
	err := r.db.WithContext(ctx).
		Model(&models.BinModel{}).
		Select("COALESCE(SUM(actual_qty), 0) AS total, COUNT(*) AS bin_count").
		Where("item_code = ?", itemCode).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, false, err
	}
	if result.BinCount == 0 {
		return decimal.Zero, false, nil
	}
	return result.Total, true, nil
}

var (
	_ integration.ItemRepository  = (*GormItemRepository)(nil)
	_ integration.ItemPriceReader = (*GormItemPriceReader)(nil)
	_ integration.StockReader     = (*GormStockReader)(nil)
)
