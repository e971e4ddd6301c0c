package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrRemoteNotConfigured   = errors.New("integration: remote catalog credentials not configured")
	ErrRemoteUnavailable     = errors.New("integration: remote catalog unavailable")
	ErrRemoteRejected        = errors.New("integration: remote catalog rejected request")
	ErrRemoteInvalidResponse = errors.New("integration: invalid remote catalog response")
	ErrRemoteInvalidID       = errors.New("integration: remote product id is required")
)

// Credentials authenticate a call against one remote site
type Credentials struct {
	SiteID string
	APIKey string
}

// IsComplete reports whether an API key is present
func (c Credentials) IsComplete() bool {
	return c.APIKey != ""
}

// RemoteProduct is the catalog representation of an item
type RemoteProduct struct {
	Name          string
	Description   string
	Brand         string
	SKU           string
	Visible       bool
	ProductType   string
	Ribbon        string
	Weight        decimal.Decimal
	TrackStock    bool
	StockQuantity int64
	Price         decimal.Decimal
	Currency      string
}

// RemoteCatalog is the port for the remote catalog API.
// Implementations never retry.
type RemoteCatalog interface {
	// CreateProduct creates a product and returns the id assigned by the remote system
	CreateProduct(ctx context.Context, creds Credentials, product RemoteProduct) (string, error)
	// UpdateProduct replaces the fields of an existing remote product
	UpdateProduct(ctx context.Context, creds Credentials, remoteProductID string, product RemoteProduct) error
	// TestConnection issues a cheap authenticated read
	TestConnection(ctx context.Context, creds Credentials) error
}

// TransportError is a failure to reach the remote catalog or read its reply
type TransportError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: request timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: connection failed: %v", e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the cause
func (e *TransportError) Unwrap() []error {
	return []error{ErrRemoteUnavailable, e.Err}
}

// RemoteRejectionError is an HTTP response outside the accepted status set.
// Body holds the raw response body.
type RemoteRejectionError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteRejectionError) Error() string {
	return fmt.Sprintf("Wix API error: %d - %s", e.StatusCode, e.Body)
}

func (e *RemoteRejectionError) Unwrap() error {
	return ErrRemoteRejected
}

// ConnectionResult summarizes a connection test for display and persistence
type ConnectionResult struct {
	OK      bool
	Message string
}

// NewConnectionResult converts a TestConnection error into a result
func NewConnectionResult(err error) ConnectionResult {
	if err == nil {
		return ConnectionResult{OK: true, Message: "Connection successful!"}
	}
	var rejection *RemoteRejectionError
	if errors.As(err, &rejection) {
		return ConnectionResult{
			Message: fmt.Sprintf("Connection failed: %d - %s", rejection.StatusCode, rejection.Body),
		}
	}
	return ConnectionResult{Message: "Connection test failed: " + err.Error()}
}
