// Package integration runs catalog sync end to end against real PostgreSQL
// and Redis containers started with testcontainers.
package integration

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/erp/catalog-sync/internal/infrastructure/migration"
	"github.com/erp/catalog-sync/internal/infrastructure/persistence/models"
)

// appTables lists every table the schema owns, children first
var appTables = []string{"sync_logs", "sync_settings", "bins", "item_prices", "items"}

// postgresFixture is the package-wide database container
type postgresFixture struct {
	mu        sync.Mutex
	container *tcpostgres.PostgresContainer
	dsn       string
}

var pg postgresFixture

// TestDB is a connection to the shared database, emptied for one test
type TestDB struct {
	DB *gorm.DB
	t  *testing.T
}

// skipIfShort skips container-backed tests in short mode
func skipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
}

// NewSharedTestDB connects to the package-wide PostgreSQL container,
// starting it and applying the embedded migrations on first use. The
// application tables are emptied before returning.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	dsn, err := pg.start(context.Background())
	require.NoError(t, err)

	db := openGorm(t, dsn)
	tdb := &TestDB{DB: db, t: t}
	tdb.Reset()
	return tdb
}

func (f *postgresFixture) start(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.container != nil {
		return f.dsn, nil
	}

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("catalog_sync_test"),
		tcpostgres.WithUsername("csync"),
		tcpostgres.WithPassword("csync"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	if err != nil {
		return "", fmt.Errorf("start postgres container: %w", err)
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err == nil {
		err = migration.ApplyEmbedded(dsn, zap.NewNop())
	}
	if err != nil {
		_ = container.Terminate(ctx)
		return "", fmt.Errorf("prepare postgres container: %w", err)
	}

	f.container, f.dsn = container, dsn
	return dsn, nil
}

func (f *postgresFixture) stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = f.container.Terminate(ctx)
	f.container, f.dsn = nil, ""
}

// CleanupSharedContainer terminates the shared container. Called from TestMain.
func CleanupSharedContainer() {
	pg.stop()
}

// Reset empties the application tables
func (tdb *TestDB) Reset() {
	tdb.t.Helper()
	stmt := "TRUNCATE TABLE " + strings.Join(appTables, ", ") + " RESTART IDENTITY CASCADE"
	require.NoError(tdb.t, tdb.DB.Exec(stmt).Error, "truncate application tables")
}

// CreateItem inserts an item row
func (tdb *TestDB) CreateItem(code, name string, standardRate string, modifiedAt time.Time) {
	tdb.t.Helper()
	item := models.ItemModel{
		Code:          code,
		ItemName:      name,
		Description:   name + " description",
		StandardRate:  decimal.RequireFromString(standardRate),
		WeightPerUnit: decimal.RequireFromString("1.5"),
		IsSalesItem:   true,
		ModifiedAt:    modifiedAt.UTC(),
	}
	require.NoError(tdb.t, tdb.DB.Create(&item).Error, "insert item %s", code)
}

// CreatePrice inserts a selling price-list rate
func (tdb *TestDB) CreatePrice(code, rate string) {
	tdb.t.Helper()
	price := models.ItemPriceModel{
		ItemCode:      code,
		PriceList:     "Standard Selling",
		PriceListRate: decimal.RequireFromString(rate),
		Selling:       true,
		UpdatedAt:     time.Now().UTC(),
	}
	require.NoError(tdb.t, tdb.DB.Create(&price).Error, "insert price for %s", code)
}

// CreateBin inserts the stock of code in warehouse
func (tdb *TestDB) CreateBin(code, warehouse, qty string) {
	tdb.t.Helper()
	bin := models.BinModel{
		ItemCode:  code,
		Warehouse: warehouse,
		ActualQty: decimal.RequireFromString(qty),
	}
	require.NoError(tdb.t, tdb.DB.Create(&bin).Error, "insert bin for %s", code)
}

func openGorm(t *testing.T, dsn string) *gorm.DB {
	t.Helper()

	level := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = logger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err, "open gorm connection")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(5)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}
