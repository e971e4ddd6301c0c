package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/erp/catalog-sync/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from the Wix API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// WixAdapter implements integration.RemoteCatalog for Wix Stores
type WixAdapter struct {
	config     *WixConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWixAdapter creates a new Wix adapter with the given configuration
func NewWixAdapter(config *WixConfig, logger *zap.Logger) (*WixAdapter, error) {
	if config == nil {
		config = NewWixConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WixAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger.Named("wix"),
	}, nil
}

// CreateProduct creates a product and returns the id assigned by Wix
func (a *WixAdapter) CreateProduct(ctx context.Context, creds integration.Credentials, product integration.RemoteProduct) (string, error) {
	body, err := a.doRequest(ctx, "create product", http.MethodPost, a.config.ProductsURL(), creds, toWixCreateProduct(product))
	if err != nil {
		return "", err
	}

	var resp WixProductEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", integration.ErrRemoteInvalidResponse, err)
	}
	if resp.Product.ID == "" {
		return "", fmt.Errorf("%w: product id missing", integration.ErrRemoteInvalidResponse)
	}

	a.logger.Debug("product created",
		zap.String("sku", product.SKU),
		zap.String("remote_id", resp.Product.ID),
	)
	return resp.Product.ID, nil
}

// UpdateProduct patches an existing Wix product
func (a *WixAdapter) UpdateProduct(ctx context.Context, creds integration.Credentials, remoteProductID string, product integration.RemoteProduct) error {
	if remoteProductID == "" {
		return integration.ErrRemoteInvalidID
	}
	_, err := a.doRequest(ctx, "update product", http.MethodPatch, a.config.ProductURL(remoteProductID), creds, toWixUpdateProduct(product))
	if err != nil {
		return err
	}

	a.logger.Debug("product updated",
		zap.String("sku", product.SKU),
		zap.String("remote_id", remoteProductID),
	)
	return nil
}

// TestConnection queries the product catalog with an empty filter
func (a *WixAdapter) TestConnection(ctx context.Context, creds integration.Credentials) error {
	_, err := a.doRequest(ctx, "test connection", http.MethodPost, a.config.QueryURL(), creds, struct{}{})
	return err
}

// doRequest performs an HTTP request to the Wix API.
// Only 200 and 201 are treated as success.
func (a *WixAdapter) doRequest(ctx context.Context, op, method, endpoint string, creds integration.Credentials, payload any) ([]byte, error) {
	if !creds.IsComplete() {
		return nil, integration.ErrRemoteNotConfigured
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wix: failed to encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("wix: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)
	req.Header.Set("wix-site-id", creds.SiteID)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &integration.TransportError{Op: op, Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &integration.TransportError{Op: op, Timeout: isTimeout(err), Err: err}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		a.logger.Warn("wix request rejected",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &integration.RemoteRejectionError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// isTimeout reports whether err was caused by a deadline
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ integration.RemoteCatalog = (*WixAdapter)(nil)
