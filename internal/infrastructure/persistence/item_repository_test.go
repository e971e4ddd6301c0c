package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/catalog-sync/internal/domain/integration"
	"github.com/erp/catalog-sync/internal/infrastructure/persistence/models"
)

func TestGormItemRepository_FindByCode(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormItemRepository(db)
	ctx := context.Background()

	modified := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	seedItem(t, db, models.ItemModel{
		Code:          "X100",
		ItemName:      "Widget",
		Brand:         "Acme",
		StandardRate:  dec("19.99"),
		WeightPerUnit: dec("1.5"),
		IsSalesItem:   true,
		ModifiedAt:    modified,
	})

	t.Run("found", func(t *testing.T) {
		item, err := repo.FindByCode(ctx, "X100")
		require.NoError(t, err)
		assert.Equal(t, "Widget", item.Name)
		assert.Equal(t, "Acme", item.Brand)
		assert.True(t, item.StandardRate.Equal(dec("19.99")))
		assert.True(t, item.WeightPerUnit.Equal(dec("1.5")))
		assert.True(t, item.IsSalesItem)
		assert.False(t, item.HasRemoteProduct())
		assert.True(t, item.ModifiedAt.Equal(modified))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := repo.FindByCode(ctx, "NOPE")
		assert.ErrorIs(t, err, integration.ErrItemNotFound)
	})
}

func TestGormItemRepository_FindSalesItems(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormItemRepository(db)
	now := time.Now().UTC()

	seedItem(t, db, models.ItemModel{Code: "B", IsSalesItem: true, ModifiedAt: now})
	seedItem(t, db, models.ItemModel{Code: "A", IsSalesItem: true, ModifiedAt: now})
	seedItem(t, db, models.ItemModel{Code: "RAW", IsSalesItem: true, ModifiedAt: now})
	require.NoError(t, db.Model(&models.ItemModel{}).Where("code = ?", "RAW").
		UpdateColumn("is_sales_item", false).Error)

	items, err := repo.FindSalesItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].Code)
	assert.Equal(t, "B", items[1].Code)
}

func TestGormItemRepository_FindPendingSync(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormItemRepository(db)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	since := now.Add(-2 * time.Hour)

	seedItem(t, db, models.ItemModel{Code: "FRESH", IsSalesItem: true, ModifiedAt: now.Add(-30 * time.Minute)})
	seedItem(t, db, models.ItemModel{Code: "EDGE", IsSalesItem: true, ModifiedAt: since})
	seedItem(t, db, models.ItemModel{Code: "STALE", IsSalesItem: true, ModifiedAt: now.Add(-3 * time.Hour)})
	seedItem(t, db, models.ItemModel{Code: "SYNCED", IsSalesItem: true, ModifiedAt: now.Add(-time.Hour)})
	seedItem(t, db, models.ItemModel{Code: "OLDSYNC", IsSalesItem: true, ModifiedAt: now.Add(-time.Hour)})
	seedItem(t, db, models.ItemModel{Code: "FAILED", IsSalesItem: true, ModifiedAt: now.Add(-90 * time.Minute)})
	seedItem(t, db, models.ItemModel{Code: "NOTSALES", IsSalesItem: true, ModifiedAt: now.Add(-time.Hour)})
	require.NoError(t, db.Model(&models.ItemModel{}).Where("code = ?", "NOTSALES").
		UpdateColumn("is_sales_item", false).Error)

	seedSyncLog(t, db, "SYNCED", "Success", now.Add(-10*time.Minute))
	seedSyncLog(t, db, "OLDSYNC", "Success", now.Add(-5*time.Hour))
	seedSyncLog(t, db, "FAILED", "Error", now.Add(-5*time.Minute))

	items, err := repo.FindPendingSync(context.Background(), since)
	require.NoError(t, err)

	codes := make([]string, len(items))
	for i, item := range items {
		codes[i] = item.Code
	}
	// ordered oldest modification first
	assert.Equal(t, []string{"EDGE", "FAILED", "OLDSYNC", "FRESH"}, codes)
}

func TestGormItemRepository_SetRemoteProductID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormItemRepository(db)
	ctx := context.Background()

	modified := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	seedItem(t, db, models.ItemModel{Code: "X100", IsSalesItem: true, ModifiedAt: modified})

	require.NoError(t, repo.SetRemoteProductID(ctx, "X100", "abc123"))

	item, err := repo.FindByCode(ctx, "X100")
	require.NoError(t, err)
	assert.Equal(t, "abc123", item.RemoteProductID)
	assert.True(t, item.ModifiedAt.Equal(modified), "modified_at must not move")

	err = repo.SetRemoteProductID(ctx, "MISSING", "zzz")
	assert.ErrorIs(t, err, integration.ErrItemNotFound)
}

func TestGormItemPriceReader_PriceListRate(t *testing.T) {
	db := setupTestDB(t)
	reader := NewGormItemPriceReader(db)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	seedItem(t, db, models.ItemModel{Code: "X100", IsSalesItem: true, ModifiedAt: base})
	require.NoError(t, db.Create(&[]models.ItemPriceModel{
		{ItemCode: "X100", PriceList: "Standard Selling", PriceListRate: dec("18.00"), Selling: true, UpdatedAt: base},
		{ItemCode: "X100", PriceList: "Retail", PriceListRate: dec("21.50"), Selling: true, UpdatedAt: base.Add(time.Hour)},
		{ItemCode: "X100", PriceList: "Standard Buying", PriceListRate: dec("9.00"), Selling: true, UpdatedAt: base.Add(2 * time.Hour)},
	}).Error)
	require.NoError(t, db.Model(&models.ItemPriceModel{}).Where("price_list = ?", "Standard Buying").
		UpdateColumn("selling", false).Error)

	t.Run("newest selling rate wins", func(t *testing.T) {
		rate, found, err := reader.PriceListRate(ctx, "X100")
		require.NoError(t, err)
		assert.True(t, found)
		assert.True(t, rate.Equal(dec("21.50")), "got %s", rate)
	})

	t.Run("no price record", func(t *testing.T) {
		rate, found, err := reader.PriceListRate(ctx, "OTHER")
		require.NoError(t, err)
		assert.False(t, found)
		assert.True(t, rate.IsZero())
	})
}

func TestGormStockReader_ActualQty(t *testing.T) {
	db := setupTestDB(t)
	reader := NewGormStockReader(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&[]models.BinModel{
		{ItemCode: "X100", Warehouse: "Stores", ActualQty: dec("3")},
		{ItemCode: "X100", Warehouse: "Finished Goods", ActualQty: dec("2.5")},
		{ItemCode: "EMPTY", Warehouse: "Stores", ActualQty: dec("0")},
	}).Error)

	t.Run("sums across warehouses", func(t *testing.T) {
		qty, found, err := reader.ActualQty(ctx, "X100")
		require.NoError(t, err)
		assert.True(t, found)
		assert.True(t, qty.Equal(dec("5.5")), "got %s", qty)
	})

	t.Run("bin with zero stock is still found", func(t *testing.T) {
		qty, found, err := reader.ActualQty(ctx, "EMPTY")
		require.NoError(t, err)
		assert.True(t, found)
		assert.True(t, qty.IsZero())
	})

	t.Run("no bins", func(t *testing.T) {
		_, found, err := reader.ActualQty(ctx, "NONE")
		require.NoError(t, err)
		assert.False(t, found)
	})
}
