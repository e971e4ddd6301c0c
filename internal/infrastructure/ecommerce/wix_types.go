package ecommerce

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/erp/catalog-sync/internal/domain/integration"
)

// WixProductEnvelope is the request and response wrapper used by the catalog API
type WixProductEnvelope struct {
	Product WixProduct `json:"product"`
}

// WixProduct is a Stores catalog v3 product.
// Pointer fields are sent on create only.
type WixProduct struct {
	ID          string        `json:"id,omitempty"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Visible     *bool         `json:"visible,omitempty"`
	ProductType string        `json:"productType,omitempty"`
	Ribbon      *string       `json:"ribbon,omitempty"`
	Brand       *string       `json:"brand,omitempty"`
	SKU         string        `json:"sku"`
	Weight      json.Number   `json:"weight"`
	Stock       *WixStock     `json:"stock,omitempty"`
	PriceData   *WixPriceData `json:"priceData,omitempty"`
}

// WixStock holds inventory tracking for a product
type WixStock struct {
	TrackingEnabled bool  `json:"trackingEnabled"`
	Quantity        int64 `json:"quantity"`
}

// WixPriceData holds the product price
type WixPriceData struct {
	Price    json.Number `json:"price"`
	Currency string      `json:"currency"`
}

// decimalNumber renders a decimal as a JSON number rather than a string
func decimalNumber(d decimal.Decimal, places int32) json.Number {
	return json.Number(d.StringFixed(places))
}

// toWixCreateProduct converts a RemoteProduct into the create request shape
func toWixCreateProduct(p integration.RemoteProduct) WixProductEnvelope {
	visible := p.Visible
	ribbon := p.Ribbon
	brand := p.Brand
	w := toWixUpdateProduct(p)
	w.Product.Visible = &visible
	w.Product.ProductType = p.ProductType
	w.Product.Ribbon = &ribbon
	w.Product.Brand = &brand
	return w
}

// toWixUpdateProduct converts a RemoteProduct into the update request shape
func toWixUpdateProduct(p integration.RemoteProduct) WixProductEnvelope {
	return WixProductEnvelope{Product: WixProduct{
		Name:        p.Name,
		Description: p.Description,
		SKU:         p.SKU,
		Weight:      json.Number(p.Weight.String()),
		Stock: &WixStock{
			TrackingEnabled: p.TrackStock,
			Quantity:        p.StockQuantity,
		},
		PriceData: &WixPriceData{
			Price:    decimalNumber(p.Price, 2),
			Currency: p.Currency,
		},
	}}
}
