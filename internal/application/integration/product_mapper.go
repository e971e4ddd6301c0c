package integration

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/erp/catalog-sync/internal/domain/integration"
)

const (
	// DefaultFallbackPrice is used when an item has neither a price-list rate nor a standard rate
	DefaultFallbackPrice = "10.00"
	// DefaultCurrency is the ISO 4217 code sent with every price
	DefaultCurrency = "USD"

	productTypePhysical = "physical"
)

// ProductMapper converts item snapshots into remote catalog payloads.
// It never fails for missing optional data.
type ProductMapper struct {
	defaultPrice decimal.Decimal
	currency     string
}

// NewProductMapper creates a mapper with the fallback price and currency
func NewProductMapper(defaultPrice decimal.Decimal, currencyCode string) (*ProductMapper, error) {
	if defaultPrice.IsNegative() {
		return nil, fmt.Errorf("default price must not be negative: %s", defaultPrice)
	}
	unit, err := currency.ParseISO(strings.TrimSpace(currencyCode))
	if err != nil {
		return nil, fmt.Errorf("invalid currency %q: %w", currencyCode, err)
	}
	return &ProductMapper{
		defaultPrice: defaultPrice.Round(2),
		currency:     unit.String(),
	}, nil
}

// ToRemotePayload maps the snapshot to the remote product representation
func (m *ProductMapper) ToRemotePayload(s integration.ItemSnapshot) integration.RemoteProduct {
	name := s.Item.DisplayName()
	return integration.RemoteProduct{
		Name:          name,
		Description:   formatDescription(s.Item.Description, name),
		Brand:         strings.TrimSpace(s.Item.Brand),
		SKU:           s.Item.Code,
		Visible:       true,
		ProductType:   productTypePhysical,
		Ribbon:        "",
		Weight:        nonNegativeOrZero(s.Item.WeightPerUnit),
		TrackStock:    true,
		StockQuantity: stockQuantity(s.ActualQty),
		Price:         m.resolvePrice(s),
		Currency:      m.currency,
	}
}

// resolvePrice picks the first positive rate of price list, then standard rate
func (m *ProductMapper) resolvePrice(s integration.ItemSnapshot) decimal.Decimal {
	if s.PriceListRate != nil && s.PriceListRate.IsPositive() {
		return s.PriceListRate.Round(2)
	}
	if s.Item.StandardRate.IsPositive() {
		return s.Item.StandardRate.Round(2)
	}
	return m.defaultPrice
}

func formatDescription(description, name string) string {
	text := strings.TrimSpace(description)
	if text == "" {
		text = "Product: " + name
	}
	if strings.HasPrefix(text, "<") {
		return text
	}
	return "<p>" + text + "</p>"
}

// stockQuantity truncates the on-hand quantity to a whole number. Oversold
// items report 0.
func stockQuantity(qty *decimal.Decimal) int64 {
	if qty == nil {
		return 0
	}
	return max(qty.IntPart(), 0)
}

func nonNegativeOrZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
