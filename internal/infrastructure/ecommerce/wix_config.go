package ecommerce

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// WixConfig holds configuration for the Wix Stores catalog API.
// Credentials are not part of the config; they are passed per call.
type WixConfig struct {
	// APIBaseURL is the base URL for the Wix REST API
	APIBaseURL string
	// Timeout bounds every HTTP call
	Timeout time.Duration
}

const (
	// WixProductionAPIURL is the production API endpoint
	WixProductionAPIURL = "https://www.wixapis.com"
	// WixDefaultTimeout is the ceiling for a single catalog call
	WixDefaultTimeout = 30 * time.Second

	wixProductsPath     = "/stores-catalog/v3/products"
	wixProductQueryPath = "/stores-catalog/v3/products/query"
)

var ErrWixConfigInvalidBaseURL = errors.New("wix: api base url is invalid")

// NewWixConfig creates a new Wix configuration with defaults
func NewWixConfig() *WixConfig {
	return &WixConfig{
		APIBaseURL: WixProductionAPIURL,
		Timeout:    WixDefaultTimeout,
	}
}

// Validate validates the configuration and fills defaults
func (c *WixConfig) Validate() error {
	if c.APIBaseURL == "" {
		c.APIBaseURL = WixProductionAPIURL
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrWixConfigInvalidBaseURL
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = WixDefaultTimeout
	}
	return nil
}

// ProductsURL returns the collection endpoint
func (c *WixConfig) ProductsURL() string {
	return c.APIBaseURL + wixProductsPath
}

// ProductURL returns the endpoint of a single product
func (c *WixConfig) ProductURL(productID string) string {
	return c.APIBaseURL + wixProductsPath + "/" + url.PathEscape(productID)
}

// QueryURL returns the product query endpoint used for connection tests
func (c *WixConfig) QueryURL() string {
	return c.APIBaseURL + wixProductQueryPath
}
