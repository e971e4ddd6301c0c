package integration

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/erp/catalog-sync/internal/domain/integration"
)

// MockItemRepository is a mock implementation of integration.ItemRepository
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) FindByCode(ctx context.Context, code string) (*integration.Item, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Item), args.Error(1)
}

func (m *MockItemRepository) FindSalesItems(ctx context.Context) ([]integration.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.Item), args.Error(1)
}

func (m *MockItemRepository) FindPendingSync(ctx context.Context, since time.Time) ([]integration.Item, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.Item), args.Error(1)
}

func (m *MockItemRepository) SetRemoteProductID(ctx context.Context, code, remoteProductID string) error {
	args := m.Called(ctx, code, remoteProductID)
	return args.Error(0)
}

// MockRemoteCatalog is a mock implementation of integration.RemoteCatalog
type MockRemoteCatalog struct {
	mock.Mock
}

func (m *MockRemoteCatalog) CreateProduct(ctx context.Context, creds integration.Credentials, product integration.RemoteProduct) (string, error) {
	args := m.Called(ctx, creds, product)
	return args.String(0), args.Error(1)
}

func (m *MockRemoteCatalog) UpdateProduct(ctx context.Context, creds integration.Credentials, remoteProductID string, product integration.RemoteProduct) error {
	args := m.Called(ctx, creds, remoteProductID, product)
	return args.Error(0)
}

func (m *MockRemoteCatalog) TestConnection(ctx context.Context, creds integration.Credentials) error {
	args := m.Called(ctx, creds)
	return args.Error(0)
}

// MockSettingsRepository is a mock implementation of integration.SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Load(ctx context.Context) (*integration.SyncSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncSettings), args.Error(1)
}

func (m *MockSettingsRepository) Save(ctx context.Context, settings *integration.SyncSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

// memorySyncLogRepository keeps ledger entries in insertion order
type memorySyncLogRepository struct {
	mu        sync.Mutex
	entries   []integration.SyncLogEntry
	appendErr error
	findErr   error
}

func (r *memorySyncLogRepository) Append(_ context.Context, entry *integration.SyncLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memorySyncLogRepository) FindMostRecentSuccess(_ context.Context, itemCode string) (*integration.SyncLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.ItemCode == itemCode && e.IsSuccess() {
			return &e, nil
		}
	}
	return nil, nil
}

func (r *memorySyncLogRepository) FindByItem(_ context.Context, itemCode string, limit int) ([]integration.SyncLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []integration.SyncLogEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].ItemCode == itemCode {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

func (r *memorySyncLogRepository) forItem(code string) []integration.SyncLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.SyncLogEntry
	for _, e := range r.entries {
		if e.ItemCode == code {
			out = append(out, e)
		}
	}
	return out
}

// staticSettings serves fixed settings
type staticSettings struct {
	settings *integration.SyncSettings
	err      error
}

func (s staticSettings) Current(context.Context) (*integration.SyncSettings, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.settings.Clone(), nil
}

func activeSettings() staticSettings {
	return staticSettings{settings: &integration.SyncSettings{Enabled: true, SiteID: "site-1", APIKey: "key-1"}}
}

// fixedPrices and fixedStock are in-memory readers keyed by item code
type fixedPrices map[string]decimal.Decimal

func (p fixedPrices) PriceListRate(_ context.Context, code string) (decimal.Decimal, bool, error) {
	rate, ok := p[code]
	return rate, ok, nil
}

type fixedStock map[string]decimal.Decimal

func (s fixedStock) ActualQty(_ context.Context, code string) (decimal.Decimal, bool, error) {
	qty, ok := s[code]
	return qty, ok, nil
}
