package integration

import (
	"context"

	"go.uber.org/zap"

	"github.com/erp/catalog-sync/internal/domain/integration"
	"github.com/erp/catalog-sync/internal/infrastructure/logger"
)

// SnapshotLoader gathers the optional price and stock data for an item.
// Lookup failures leave the corresponding field nil.
type SnapshotLoader struct {
	prices integration.ItemPriceReader
	stock  integration.StockReader
}

// NewSnapshotLoader creates a SnapshotLoader
func NewSnapshotLoader(prices integration.ItemPriceReader, stock integration.StockReader) *SnapshotLoader {
	return &SnapshotLoader{prices: prices, stock: stock}
}

// Load builds the snapshot for item
func (l *SnapshotLoader) Load(ctx context.Context, item integration.Item) integration.ItemSnapshot {
	snapshot := integration.ItemSnapshot{Item: item}
	log := logger.FromContext(ctx)

	if l.prices != nil {
		rate, found, err := l.prices.PriceListRate(ctx, item.Code)
		switch {
		case err != nil:
			log.Warn("Price lookup failed, falling back", zap.Error(err))
		case found:
			snapshot.PriceListRate = &rate
		}
	}

	if l.stock != nil {
		qty, found, err := l.stock.ActualQty(ctx, item.Code)
		switch {
		case err != nil:
			log.Warn("Stock lookup failed, sending zero", zap.Error(err))
		case found:
			snapshot.ActualQty = &qty
		}
	}

	return snapshot
}
