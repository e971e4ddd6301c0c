package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/catalog-sync/internal/domain/integration"
)

func TestGormSyncLogRepository_AppendAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSyncLogRepository(db)
	ledger := integration.NewSyncLedger(repo)
	ctx := context.Background()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := at
	ledger.WithClock(func() time.Time { return clock })

	_, err := ledger.Record(ctx, "X100", "Success", "abc123", "")
	require.NoError(t, err)
	clock = at.Add(time.Minute)
	_, err = ledger.Record(ctx, "X100", "Failed", "", "Wix API error: 500 - boom")
	require.NoError(t, err)
	clock = at.Add(2 * time.Minute)
	_, err = ledger.Record(ctx, "OTHER", "Success", "zzz", "")
	require.NoError(t, err)

	t.Run("most recent success ignores errors and other items", func(t *testing.T) {
		entry, err := repo.FindMostRecentSuccess(ctx, "X100")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "abc123", entry.RemoteProductID)
		assert.True(t, entry.SyncedAt.Equal(at))
	})

	t.Run("no success yields nil", func(t *testing.T) {
		entry, err := repo.FindMostRecentSuccess(ctx, "UNKNOWN")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("history newest first with normalized status", func(t *testing.T) {
		entries, err := repo.FindByItem(ctx, "X100", 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, integration.SyncStatusError, entries[0].Status)
		assert.Equal(t, "Wix API error: 500 - boom", entries[0].ErrorMessage)
		assert.Equal(t, integration.SyncStatusSuccess, entries[1].Status)
	})

	t.Run("limit applies", func(t *testing.T) {
		entries, err := repo.FindByItem(ctx, "X100", 1)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestGormSyncLogRepository_SameTimestampUsesInsertOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSyncLogRepository(db)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first, err := integration.NewSyncLogEntry("X100", "Success", "first", "", at)
	require.NoError(t, err)
	second, err := integration.NewSyncLogEntry("X100", "Success", "second", "", at)
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, first))
	require.NoError(t, repo.Append(ctx, second))

	entry, err := repo.FindMostRecentSuccess(ctx, "X100")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "second", entry.RemoteProductID)
}

func TestGormItemRepository_FindPendingSync_PostgresQuery(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	repo := NewGormItemRepository(db.DB)
	since := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	mock.ExpectQuery(`SELECT \* FROM "items" WHERE is_sales_item = \$1 AND modified_at >= \$2 AND \(?NOT EXISTS`).
		WithArgs(true, since.UTC(), integration.SyncStatusSuccess, since.UTC()).
		WillReturnRows(sqlmock.NewRows([]string{"code", "item_name", "is_sales_item", "modified_at"}).
			AddRow("X100", "Widget", true, since.UTC().Add(time.Minute)))

	items, err := repo.FindPendingSync(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "X100", items[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
