package ecommerce

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/catalog-sync/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestWixConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *WixConfig
		wantErr error
		wantURL string
	}{
		{
			name:    "empty config gets defaults",
			config:  &WixConfig{},
			wantURL: WixProductionAPIURL,
		},
		{
			name:    "trailing slash is trimmed",
			config:  &WixConfig{APIBaseURL: "http://localhost:9999/"},
			wantURL: "http://localhost:9999",
		},
		{
			name:    "relative url is rejected",
			config:  &WixConfig{APIBaseURL: "wixapis"},
			wantErr: ErrWixConfigInvalidBaseURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, tt.config.APIBaseURL)
			assert.Equal(t, WixDefaultTimeout, tt.config.Timeout)
		})
	}
}

func TestWixConfig_URLs(t *testing.T) {
	cfg := &WixConfig{APIBaseURL: "https://www.wixapis.com"}
	assert.Equal(t, "https://www.wixapis.com/stores-catalog/v3/products", cfg.ProductsURL())
	assert.Equal(t, "https://www.wixapis.com/stores-catalog/v3/products/abc123", cfg.ProductURL("abc123"))
	assert.Equal(t, "https://www.wixapis.com/stores-catalog/v3/products/a%2Fb", cfg.ProductURL("a/b"))
	assert.Equal(t, "https://www.wixapis.com/stores-catalog/v3/products/query", cfg.QueryURL())
}

// ---------------------------------------------------------------------------
// Adapter Tests
// ---------------------------------------------------------------------------

var testCreds = integration.Credentials{SiteID: "site-1", APIKey: "token-1"}

func widgetProduct(stock int64) integration.RemoteProduct {
	return integration.RemoteProduct{
		Name:          "Widget",
		Description:   "<p>Product: Widget</p>",
		Brand:         "Acme",
		SKU:           "X100",
		Visible:       true,
		ProductType:   "physical",
		Weight:        decimal.RequireFromString("0.5"),
		TrackStock:    true,
		StockQuantity: stock,
		Price:         decimal.RequireFromString("19.99"),
		Currency:      "USD",
	}
}

func newTestAdapter(t *testing.T, server *httptest.Server, timeout time.Duration) *WixAdapter {
	adapter, err := NewWixAdapter(&WixConfig{APIBaseURL: server.URL, Timeout: timeout}, nil)
	require.NoError(t, err)
	return adapter
}

func assertWixHeaders(t *testing.T, r *http.Request) {
	assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
	assert.Equal(t, "site-1", r.Header.Get("wix-site-id"))
	assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", r.Header.Get("Accept"))
}

func TestWixAdapter_CreateProduct(t *testing.T) {
	t.Run("returns remote id on 201", func(t *testing.T) {
		var received map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/stores-catalog/v3/products", r.URL.Path)
			assertWixHeaders(t, r)

			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &received))

			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"product":{"id":"abc123","name":"Widget"}}`))
		}))
		defer server.Close()

		id, err := newTestAdapter(t, server, time.Second).CreateProduct(context.Background(), testCreds, widgetProduct(5))
		require.NoError(t, err)
		assert.Equal(t, "abc123", id)

		product := received["product"].(map[string]any)
		assert.Equal(t, "X100", product["sku"])
		assert.Equal(t, "Widget", product["name"])
		assert.Equal(t, true, product["visible"])
		assert.Equal(t, "physical", product["productType"])
		assert.Equal(t, "", product["ribbon"])
		assert.Equal(t, "Acme", product["brand"])
		assert.Equal(t, 0.5, product["weight"])
		assert.Equal(t, map[string]any{"trackingEnabled": true, "quantity": float64(5)}, product["stock"])
		assert.Equal(t, map[string]any{"price": 19.99, "currency": "USD"}, product["priceData"])
	})

	t.Run("accepts 200", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"product":{"id":"p-200"}}`))
		}))
		defer server.Close()

		id, err := newTestAdapter(t, server, time.Second).CreateProduct(context.Background(), testCreds, widgetProduct(1))
		require.NoError(t, err)
		assert.Equal(t, "p-200", id)
	})

	t.Run("keeps status and body of rejections", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"sku already exists"}`))
		}))
		defer server.Close()

		_, err := newTestAdapter(t, server, time.Second).CreateProduct(context.Background(), testCreds, widgetProduct(1))
		require.Error(t, err)
		assert.ErrorIs(t, err, integration.ErrRemoteRejected)

		var rejection *integration.RemoteRejectionError
		require.True(t, errors.As(err, &rejection))
		assert.Equal(t, http.StatusBadRequest, rejection.StatusCode)
		assert.Equal(t, `{"message":"sku already exists"}`, rejection.Body)
	})

	t.Run("treats 202 as rejection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}))
		defer server.Close()

		_, err := newTestAdapter(t, server, time.Second).CreateProduct(context.Background(), testCreds, widgetProduct(1))
		assert.ErrorIs(t, err, integration.ErrRemoteRejected)
	})

	t.Run("fails when id is missing", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"product":{}}`))
		}))
		defer server.Close()

		_, err := newTestAdapter(t, server, time.Second).CreateProduct(context.Background(), testCreds, widgetProduct(1))
		assert.ErrorIs(t, err, integration.ErrRemoteInvalidResponse)
	})

	t.Run("reports timeouts as transport errors", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()
		defer close(release)

		_, err := newTestAdapter(t, server, 50*time.Millisecond).CreateProduct(context.Background(), testCreds, widgetProduct(1))
		require.Error(t, err)
		assert.ErrorIs(t, err, integration.ErrRemoteUnavailable)

		var transport *integration.TransportError
		require.True(t, errors.As(err, &transport))
		assert.True(t, transport.Timeout)
		assert.False(t, errors.Is(err, integration.ErrRemoteRejected))
	})

	t.Run("reports refused connections as transport errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		adapter := newTestAdapter(t, server, time.Second)
		server.Close()

		_, err := adapter.CreateProduct(context.Background(), testCreds, widgetProduct(1))
		var transport *integration.TransportError
		require.True(t, errors.As(err, &transport))
		assert.False(t, transport.Timeout)
	})

	t.Run("requires an api key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		}))
		defer server.Close()

		_, err := newTestAdapter(t, server, time.Second).CreateProduct(context.Background(), integration.Credentials{SiteID: "s"}, widgetProduct(1))
		assert.ErrorIs(t, err, integration.ErrRemoteNotConfigured)
	})
}

func TestWixAdapter_UpdateProduct(t *testing.T) {
	t.Run("patches the product by id", func(t *testing.T) {
		var received map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			assert.Equal(t, "/stores-catalog/v3/products/abc123", r.URL.Path)
			assertWixHeaders(t, r)
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &received))
			_, _ = w.Write([]byte(`{"product":{"id":"abc123"}}`))
		}))
		defer server.Close()

		err := newTestAdapter(t, server, time.Second).UpdateProduct(context.Background(), testCreds, "abc123", widgetProduct(3))
		require.NoError(t, err)

		product := received["product"].(map[string]any)
		assert.Equal(t, float64(3), product["stock"].(map[string]any)["quantity"])
		assert.NotContains(t, product, "visible")
		assert.NotContains(t, product, "productType")
		assert.NotContains(t, product, "brand")
	})

	t.Run("accepts 201", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		err := newTestAdapter(t, server, time.Second).UpdateProduct(context.Background(), testCreds, "abc123", widgetProduct(3))
		assert.NoError(t, err)
	})

	t.Run("rejects 404", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "product not found", http.StatusNotFound)
		}))
		defer server.Close()

		err := newTestAdapter(t, server, time.Second).UpdateProduct(context.Background(), testCreds, "gone", widgetProduct(3))
		var rejection *integration.RemoteRejectionError
		require.True(t, errors.As(err, &rejection))
		assert.Equal(t, http.StatusNotFound, rejection.StatusCode)
		assert.Equal(t, "product not found\n", rejection.Body)
	})

	t.Run("requires a remote id", func(t *testing.T) {
		adapter, err := NewWixAdapter(nil, nil)
		require.NoError(t, err)
		assert.ErrorIs(t, adapter.UpdateProduct(context.Background(), testCreds, "", widgetProduct(1)), integration.ErrRemoteInvalidID)
	})
}

func TestWixAdapter_TestConnection(t *testing.T) {
	t.Run("queries products", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/stores-catalog/v3/products/query", r.URL.Path)
			assertWixHeaders(t, r)
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{}`, string(body))
			_, _ = w.Write([]byte(`{"products":[]}`))
		}))
		defer server.Close()

		assert.NoError(t, newTestAdapter(t, server, time.Second).TestConnection(context.Background(), testCreds))
	})

	t.Run("surfaces unauthorized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("invalid token"))
		}))
		defer server.Close()

		err := newTestAdapter(t, server, time.Second).TestConnection(context.Background(), testCreds)
		result := integration.NewConnectionResult(err)
		assert.False(t, result.OK)
		assert.Equal(t, "Connection failed: 401 - invalid token", result.Message)
	})
}
