package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSyncStatus(t *testing.T) {
	tests := []struct {
		input string
		want  SyncStatus
	}{
		{"Success", SyncStatusSuccess},
		{"success", SyncStatusSuccess},
		{" SUCCESS ", SyncStatusSuccess},
		{"Error", SyncStatusError},
		{"Failed", SyncStatusError},
		{"", SyncStatusError},
		{"Pending", SyncStatusError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSyncStatus(tt.input))
			assert.True(t, NormalizeSyncStatus(tt.input).IsValid())
		})
	}
}

func TestNewSyncLogEntry(t *testing.T) {
	t.Run("collapses Failed into Error", func(t *testing.T) {
		entry, err := NewSyncLogEntry("X100", "Failed", "", "boom", time.Time{})
		require.NoError(t, err)
		assert.Equal(t, SyncStatusError, entry.Status)
		assert.Equal(t, "boom", entry.ErrorMessage)
		assert.False(t, entry.IsSuccess())
	})

	t.Run("defaults timestamp to now", func(t *testing.T) {
		before := time.Now().Add(-time.Second)
		entry, err := NewSyncLogEntry("X100", "Success", "abc123", "", time.Time{})
		require.NoError(t, err)
		assert.True(t, entry.SyncedAt.After(before))
		assert.Equal(t, time.UTC, entry.SyncedAt.Location())
		assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", entry.ID.String())
	})

	t.Run("keeps explicit timestamp", func(t *testing.T) {
		at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		entry, err := NewSyncLogEntry("X100", "Success", "abc123", "", at)
		require.NoError(t, err)
		assert.Equal(t, at, entry.SyncedAt)
		assert.Equal(t, "abc123", entry.RemoteProductID)
		assert.True(t, entry.IsSuccess())
	})

	t.Run("rejects blank item code", func(t *testing.T) {
		_, err := NewSyncLogEntry("  ", "Success", "", "", time.Time{})
		assert.ErrorIs(t, err, ErrSyncLogInvalidItemCode)
	})
}
