package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appintegration "github.com/erp/catalog-sync/internal/application/integration"
	"github.com/erp/catalog-sync/internal/domain/integration"
	"github.com/erp/catalog-sync/internal/domain/shared"
	"github.com/erp/catalog-sync/internal/interfaces/http/dto"
	"github.com/erp/catalog-sync/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockSyncRunner struct {
	mock.Mock
}

func (m *MockSyncRunner) SyncItemByCode(ctx context.Context, code string) appintegration.ManualSyncResult {
	args := m.Called(ctx, code)
	return args.Get(0).(appintegration.ManualSyncResult)
}

func (m *MockSyncRunner) SyncAll(ctx context.Context) (appintegration.BulkSyncResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(appintegration.BulkSyncResult), args.Error(1)
}

func (m *MockSyncRunner) ItemLogs(ctx context.Context, code string, limit int) ([]appintegration.SyncLogResponse, error) {
	args := m.Called(ctx, code, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appintegration.SyncLogResponse), args.Error(1)
}

type MockSweepRunner struct {
	mock.Mock
}

func (m *MockSweepRunner) RunNow(ctx context.Context) (integration.SweepReport, error) {
	args := m.Called(ctx)
	return args.Get(0).(integration.SweepReport), args.Error(1)
}

type MockSettingsManager struct {
	mock.Mock
}

func (m *MockSettingsManager) Get(ctx context.Context) (appintegration.SettingsView, error) {
	args := m.Called(ctx)
	return args.Get(0).(appintegration.SettingsView), args.Error(1)
}

func (m *MockSettingsManager) Update(ctx context.Context, req appintegration.UpdateSettingsRequest) (appintegration.SettingsView, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(appintegration.SettingsView), args.Error(1)
}

func (m *MockSettingsManager) TestConnection(ctx context.Context) (appintegration.ConnectionTestResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(appintegration.ConnectionTestResult), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// serve runs one request through a router with the request id middleware
func serve(t *testing.T, register func(r *gin.Engine), method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.Use(middleware.RequestID())
	register(r)

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func dataMap(t *testing.T, resp dto.Response) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}
