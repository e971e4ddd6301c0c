package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/erp/catalog-sync/internal/domain/integration"
	"github.com/erp/catalog-sync/internal/infrastructure/persistence/models"
)

// setupTestDB opens an in-memory SQLite database with every catalog-sync table
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func seedItem(t *testing.T, db *gorm.DB, item models.ItemModel) {
	t.Helper()
	require.NoError(t, db.Create(&item).Error)
}

func seedSyncLog(t *testing.T, db *gorm.DB, code string, status string, at time.Time) {
	t.Helper()
	entry := models.SyncLogModel{
		ID:       uuid.New(),
		ItemCode: code,
		Status:   integration.NormalizeSyncStatus(status),
		SyncedAt: at.UTC(),
	}
	require.NoError(t, db.Create(&entry).Error)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
