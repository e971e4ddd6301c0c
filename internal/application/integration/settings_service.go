package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erp/catalog-sync/internal/domain/integration"
	"github.com/erp/catalog-sync/internal/infrastructure/telemetry"
)

// SettingsProvider returns the current sync settings
type SettingsProvider interface {
	Current(ctx context.Context) (*integration.SyncSettings, error)
}

// SettingsService owns the singleton settings row and caches it in memory
type SettingsService struct {
	repo     integration.SettingsRepository
	catalog  integration.RemoteCatalog
	defaults integration.SettingsDefaults
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.RWMutex
	cached *integration.SyncSettings
}

// NewSettingsService creates a SettingsService. defaults seed the row when it is absent.
func NewSettingsService(
	repo integration.SettingsRepository,
	catalog integration.RemoteCatalog,
	defaults integration.SettingsDefaults,
	logger *zap.Logger,
) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{
		repo:     repo,
		catalog:  catalog,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
	}
}

// Init loads the settings row, creating it from defaults when absent
func (s *SettingsService) Init(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}

// Current returns a copy of the cached settings, loading them on first use
func (s *SettingsService) Current(ctx context.Context) (*integration.SyncSettings, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return cached.Clone(), nil
	}
	settings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return settings.Clone(), nil
}

// Get returns the settings with the API key masked
func (s *SettingsService) Get(ctx context.Context) (SettingsView, error) {
	settings, err := s.Current(ctx)
	if err != nil {
		return SettingsView{}, err
	}
	return ToSettingsView(settings), nil
}

// Update applies an admin change. Changing the key or site clears the last test result.
func (s *SettingsService) Update(ctx context.Context, req UpdateSettingsRequest) (SettingsView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.loadLocked(ctx)
	if err != nil {
		return SettingsView{}, err
	}
	siteID := req.SiteID
	if strings.TrimSpace(siteID) == "" {
		siteID = s.defaults.SiteID
	}
	updated := settings.Clone()
	changed := updated.Update(req.Enabled, siteID, req.APIKey)

	if err := s.repo.Save(ctx, updated); err != nil {
		return SettingsView{}, fmt.Errorf("save sync settings: %w", err)
	}
	s.cached = updated

	s.logger.Info("Sync settings updated",
		zap.Bool("enabled", updated.Enabled),
		zap.String("site_id", updated.SiteID),
		zap.Bool("credentials_changed", changed),
	)
	return ToSettingsView(updated), nil
}

// TestConnection probes the remote catalog and persists the outcome
func (s *SettingsService) TestConnection(ctx context.Context) (ConnectionTestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "catalog_sync.test_connection")
	defer span.End()

	settings, err := s.Current(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return ConnectionTestResult{}, err
	}

	creds := settings.Credentials()
	var testErr error
	if !settings.HasCredential() {
		testErr = integration.ErrRemoteNotConfigured
	} else {
		testErr = s.catalog.TestConnection(ctx, creds)
	}
	result := integration.NewConnectionResult(testErr)
	testedAt := s.now().UTC()

	if err := s.recordTest(ctx, creds, result, testedAt); err != nil {
		s.logger.Warn("Failed to persist connection test result", zap.Error(err))
	}

	if result.OK {
		telemetry.SetOK(span)
		s.logger.Info("Connection test succeeded", zap.String("site_id", settings.SiteID))
	} else {
		telemetry.RecordError(span, testErr)
		s.logger.Warn("Connection test failed", zap.String("site_id", settings.SiteID), zap.Error(testErr))
	}

	return ConnectionTestResult{Success: result.OK, Message: result.Message, TestedAt: testedAt}, nil
}

// recordTest stores result unless the credentials changed while the test ran
func (s *SettingsService) recordTest(ctx context.Context, tested integration.Credentials, result integration.ConnectionResult, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	if settings.Credentials() != tested {
		s.logger.Debug("Credentials changed during connection test, result not stored",
			zap.String("tested_site_id", tested.SiteID),
			zap.String("site_id", settings.SiteID),
		)
		return nil
	}
	updated := settings.Clone()
	updated.RecordConnectionTest(result, at)
	if err := s.repo.Save(context.WithoutCancel(ctx), updated); err != nil {
		return err
	}
	s.cached = updated
	return nil
}

func (s *SettingsService) load(ctx context.Context) (*integration.SyncSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// loadLocked must be called with mu held
func (s *SettingsService) loadLocked(ctx context.Context) (*integration.SyncSettings, error) {
	if s.cached != nil {
		return s.cached, nil
	}

	settings, err := s.repo.Load(ctx)
	switch {
	case errors.Is(err, integration.ErrSettingsNotFound):
		settings = integration.NewDefaultSyncSettings(s.defaults)
		settings.ApplyDefaults(s.defaults.SiteID)
		if err := s.repo.Save(ctx, settings); err != nil {
			return nil, fmt.Errorf("create default sync settings: %w", err)
		}
		s.logger.Info("Created default sync settings",
			zap.Bool("enabled", settings.Enabled),
			zap.String("site_id", settings.SiteID),
		)
	case err != nil:
		return nil, fmt.Errorf("load sync settings: %w", err)
	default:
		settings.ApplyDefaults(s.defaults.SiteID)
	}

	s.cached = settings
	return settings, nil
}
