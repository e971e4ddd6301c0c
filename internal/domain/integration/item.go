package integration

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound    = errors.New("integration: item not found")
	ErrItemInvalidCode = errors.New("integration: item code is required")
)

// Item is the ERP item as seen by the sync engine.
// RemoteProductID is the only field this service writes.
type Item struct {
	Code            string
	Name            string
	Description     string
	Brand           string
	StandardRate    decimal.Decimal
	WeightPerUnit   decimal.Decimal
	IsSalesItem     bool
	RemoteProductID string
	ModifiedAt      time.Time
}

// DisplayName returns the item name, or the code when the name is blank
func (i *Item) DisplayName() string {
	if name := strings.TrimSpace(i.Name); name != "" {
		return name
	}
	return i.Code
}

// IsSyncEligible reports whether the item participates in catalog sync
func (i *Item) IsSyncEligible() bool {
	return i.IsSalesItem
}

// HasRemoteProduct reports whether a remote product id has been stored on the item
func (i *Item) HasRemoteProduct() bool {
	return i.RemoteProductID != ""
}

// ItemSnapshot bundles an item with the optional lookups the payload depends on.
// A nil pointer means the value was unavailable.
type ItemSnapshot struct {
	Item          Item
	PriceListRate *decimal.Decimal
	ActualQty     *decimal.Decimal
}

// ItemRepository reads ERP items and stores the remote product reference
type ItemRepository interface {
	FindByCode(ctx context.Context, code string) (*Item, error)
	// FindSalesItems returns every sales-eligible item ordered by code
	FindSalesItems(ctx context.Context) ([]Item, error)
	// FindPendingSync returns sales-eligible items modified at or after since
	// that have no successful sync log entry at or after since
	FindPendingSync(ctx context.Context, since time.Time) ([]Item, error)
	SetRemoteProductID(ctx context.Context, code, remoteProductID string) error
}

// ItemPriceReader resolves the selling price-list rate of an item.
// found is false when no price record exists.
type ItemPriceReader interface {
	PriceListRate(ctx context.Context, itemCode string) (rate decimal.Decimal, found bool, err error)
}

// StockReader resolves the on-hand quantity of an item.
// found is false when no inventory record exists.
type StockReader interface {
	ActualQty(ctx context.Context, itemCode string) (qty decimal.Decimal, found bool, err error)
}
