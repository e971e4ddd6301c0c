package persistence

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/catalog-sync/internal/domain/integration"
	"github.com/erp/catalog-sync/internal/infrastructure/persistence/models"
)

// reverseCipher is a reversible stand-in for the secretbox cipher
type reverseCipher struct{}

func (reverseCipher) Seal(plaintext string) (string, error) {
	return "sealed:" + reverse(plaintext), nil
}

func (reverseCipher) Open(value string) (string, error) {
	return reverse(strings.TrimPrefix(value, "sealed:")), nil
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func TestGormSyncSettingsRepository_LoadMissing(t *testing.T) {
	repo := NewGormSyncSettingsRepository(setupTestDB(t), nil)

	_, err := repo.Load(context.Background())
	assert.ErrorIs(t, err, integration.ErrSettingsNotFound)
}

func TestGormSyncSettingsRepository_SaveUpserts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSyncSettingsRepository(db, nil)
	ctx := context.Background()

	settings := integration.NewDefaultSyncSettings(integration.SettingsDefaults{
		Enabled: true,
		SiteID:  "site-1",
		APIKey:  "key-1",
	})
	require.NoError(t, repo.Save(ctx, settings))

	tested := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	settings.RecordConnectionTest(integration.ConnectionResult{OK: true, Message: "Connection successful!"}, tested)
	require.NoError(t, repo.Save(ctx, settings))

	var count int64
	require.NoError(t, db.Model(&models.SyncSettingsModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.Enabled)
	assert.Equal(t, "site-1", loaded.SiteID)
	assert.Equal(t, "key-1", loaded.APIKey)
	assert.Equal(t, "Connection successful!", loaded.ConnectionStatus)
	require.NotNil(t, loaded.LastTestedAt)
	assert.True(t, loaded.LastTestedAt.Equal(tested))
}

func TestGormSyncSettingsRepository_SealsAPIKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSyncSettingsRepository(db, reverseCipher{})
	ctx := context.Background()

	settings := integration.NewDefaultSyncSettings(integration.SettingsDefaults{SiteID: "site-1", APIKey: "secret"})
	require.NoError(t, repo.Save(ctx, settings))

	var raw models.SyncSettingsModel
	require.NoError(t, db.First(&raw, "id = ?", models.SettingsSingletonID).Error)
	assert.Equal(t, "sealed:terces", raw.APIKey)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secret", loaded.APIKey)
}
