package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/catalog-sync/internal/domain/integration"
)

var testDefaults = integration.SettingsDefaults{Enabled: true, SiteID: "default-site", APIKey: "seed-key"}

func TestSettingsService_InitCreatesDefaults(t *testing.T) {
	repo := new(MockSettingsRepository)
	repo.On("Load", mock.Anything).Return(nil, integration.ErrSettingsNotFound).Once()
	repo.On("Save", mock.Anything, mock.MatchedBy(func(s *integration.SyncSettings) bool {
		return s.Enabled && s.SiteID == "default-site" && s.APIKey == "seed-key"
	})).Return(nil).Once()

	svc := NewSettingsService(repo, new(MockRemoteCatalog), testDefaults, zap.NewNop())
	require.NoError(t, svc.Init(context.Background()))

	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "default-site", current.SiteID)

	// served from cache afterwards
	_, err = svc.Current(context.Background())
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "Load", 1)
}

func TestSettingsService_InitAppliesDefaultSiteToExistingRow(t *testing.T) {
	repo := new(MockSettingsRepository)
	repo.On("Load", mock.Anything).Return(&integration.SyncSettings{Enabled: true, APIKey: "k"}, nil).Once()

	svc := NewSettingsService(repo, new(MockRemoteCatalog), testDefaults, zap.NewNop())
	require.NoError(t, svc.Init(context.Background()))

	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "default-site", current.SiteID)
}

func TestSettingsService_InitLoadError(t *testing.T) {
	repo := new(MockSettingsRepository)
	repo.On("Load", mock.Anything).Return(nil, errors.New("db down"))

	svc := NewSettingsService(repo, new(MockRemoteCatalog), testDefaults, zap.NewNop())
	assert.Error(t, svc.Init(context.Background()))
}

func TestSettingsService_CurrentReturnsCopy(t *testing.T) {
	repo := new(MockSettingsRepository)
	repo.On("Load", mock.Anything).Return(&integration.SyncSettings{Enabled: true, SiteID: "s", APIKey: "k"}, nil).Once()
	svc := NewSettingsService(repo, new(MockRemoteCatalog), testDefaults, zap.NewNop())

	first, err := svc.Current(context.Background())
	require.NoError(t, err)
	first.Enabled = false

	second, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Enabled)
}

func TestSettingsService_UpdateClearsConnectionStatus(t *testing.T) {
	tested := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	repo := new(MockSettingsRepository)
	repo.On("Load", mock.Anything).Return(&integration.SyncSettings{
		Enabled:          true,
		SiteID:           "site-1",
		APIKey:           "old-key",
		ConnectionStatus: "Connection successful!",
		LastTestedAt:     &tested,
	}, nil).Once()
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	svc := NewSettingsService(repo, new(MockRemoteCatalog), testDefaults, zap.NewNop())

	t.Run("same credentials keep status", func(t *testing.T) {
		view, err := svc.Update(context.Background(), UpdateSettingsRequest{Enabled: false, SiteID: "site-1"})
		require.NoError(t, err)
		assert.False(t, view.Enabled)
		assert.Equal(t, "Connection successful!", view.ConnectionStatus)
		assert.Equal(t, "********-key", view.APIKeyMasked)
	})

	t.Run("new key clears status", func(t *testing.T) {
		key := "new-key-1234"
		view, err := svc.Update(context.Background(), UpdateSettingsRequest{Enabled: true, SiteID: "site-1", APIKey: &key})
		require.NoError(t, err)
		assert.Empty(t, view.ConnectionStatus)
		assert.Nil(t, view.LastTestedAt)
		assert.Equal(t, "********1234", view.APIKeyMasked)

		current, err := svc.Current(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "new-key-1234", current.APIKey)
	})

	t.Run("blank site falls back to default", func(t *testing.T) {
		view, err := svc.Update(context.Background(), UpdateSettingsRequest{Enabled: true, SiteID: " "})
		require.NoError(t, err)
		assert.Equal(t, "default-site", view.SiteID)
	})
}

func TestSettingsService_UpdateSaveFailureKeepsCache(t *testing.T) {
	repo := new(MockSettingsRepository)
	repo.On("Load", mock.Anything).Return(&integration.SyncSettings{Enabled: true, SiteID: "s", APIKey: "k"}, nil).Once()
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("write failed"))

	svc := NewSettingsService(repo, new(MockRemoteCatalog), testDefaults, zap.NewNop())
	_, err := svc.Update(context.Background(), UpdateSettingsRequest{Enabled: false, SiteID: "s"})
	require.Error(t, err)

	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, current.Enabled)
}

func TestSettingsService_TestConnection(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	newService := func(catalogErr error) (*SettingsService, *MockSettingsRepository, *MockRemoteCatalog) {
		repo := new(MockSettingsRepository)
		repo.On("Load", mock.Anything).Return(&integration.SyncSettings{Enabled: true, SiteID: "site-1", APIKey: "key-1"}, nil).Once()
		catalog := new(MockRemoteCatalog)
		catalog.On("TestConnection", mock.Anything, integration.Credentials{SiteID: "site-1", APIKey: "key-1"}).Return(catalogErr)
		svc := NewSettingsService(repo, catalog, testDefaults, zap.NewNop())
		svc.now = func() time.Time { return now }
		return svc, repo, catalog
	}

	t.Run("success persists status and time", func(t *testing.T) {
		svc, repo, _ := newService(nil)
		repo.On("Save", mock.Anything, mock.MatchedBy(func(s *integration.SyncSettings) bool {
			return s.ConnectionStatus == "Connection successful!" && s.LastTestedAt != nil && s.LastTestedAt.Equal(now)
		})).Return(nil).Once()

		result, err := svc.TestConnection(context.Background())
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "Connection successful!", result.Message)
		assert.Equal(t, now, result.TestedAt)
		repo.AssertExpectations(t)
	})

	t.Run("rejection message carries status and body", func(t *testing.T) {
		svc, repo, _ := newService(&integration.RemoteRejectionError{StatusCode: 401, Body: "unauthorized"})
		repo.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

		result, err := svc.TestConnection(context.Background())
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "Connection failed: 401 - unauthorized", result.Message)

		current, err := svc.Current(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Connection failed: 401 - unauthorized", current.ConnectionStatus)
	})

	t.Run("transport failure", func(t *testing.T) {
		svc, repo, _ := newService(&integration.TransportError{Op: "test", Err: errors.New("dial tcp: refused")})
		repo.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

		result, err := svc.TestConnection(context.Background())
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Contains(t, result.Message, "Connection test failed:")
	})

	t.Run("missing key does not call remote", func(t *testing.T) {
		repo := new(MockSettingsRepository)
		repo.On("Load", mock.Anything).Return(&integration.SyncSettings{Enabled: true, SiteID: "s"}, nil).Once()
		repo.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
		catalog := new(MockRemoteCatalog)
		svc := NewSettingsService(repo, catalog, testDefaults, zap.NewNop())

		result, err := svc.TestConnection(context.Background())
		require.NoError(t, err)
		assert.False(t, result.Success)
		catalog.AssertNotCalled(t, "TestConnection", mock.Anything, mock.Anything)
	})
}

func TestSettingsService_TestConnectionDiscardedAfterCredentialChange(t *testing.T) {
	repo := new(MockSettingsRepository)
	repo.On("Load", mock.Anything).Return(&integration.SyncSettings{Enabled: true, SiteID: "site-1", APIKey: "old-key"}, nil).Once()
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	started := make(chan struct{})
	release := make(chan struct{})
	catalog := new(MockRemoteCatalog)
	catalog.On("TestConnection", mock.Anything, integration.Credentials{SiteID: "site-1", APIKey: "old-key"}).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).Return(nil).Once()

	svc := NewSettingsService(repo, catalog, testDefaults, zap.NewNop())
	require.NoError(t, svc.Init(context.Background()))

	done := make(chan ConnectionTestResult, 1)
	go func() {
		result, err := svc.TestConnection(context.Background())
		assert.NoError(t, err)
		done <- result
	}()

	<-started
	key := "new-key"
	_, err := svc.Update(context.Background(), UpdateSettingsRequest{Enabled: true, SiteID: "site-1", APIKey: &key})
	require.NoError(t, err)
	close(release)

	result := <-done
	assert.True(t, result.Success)

	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-key", current.APIKey)
	assert.Empty(t, current.ConnectionStatus)
	assert.Nil(t, current.LastTestedAt)
}
