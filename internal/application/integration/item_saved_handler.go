package integration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/catalog-sync/internal/domain/integration"
	"github.com/erp/catalog-sync/internal/domain/shared"
)

// ItemSavedHandler reacts to ItemSaved events by syncing the item
type ItemSavedHandler struct {
	items  integration.ItemRepository
	sync   *SyncService
	logger *zap.Logger
}

// NewItemSavedHandler creates an ItemSavedHandler
func NewItemSavedHandler(items integration.ItemRepository, sync *SyncService, logger *zap.Logger) *ItemSavedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemSavedHandler{items: items, sync: sync, logger: logger}
}

// EventTypes returns the event types this handler subscribes to
func (h *ItemSavedHandler) EventTypes() []string {
	return []string{integration.EventTypeItemSaved}
}

// Handle loads the saved item and syncs it. Sync failures are not returned.
func (h *ItemSavedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	saved, ok := event.(*integration.ItemSavedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, integration.EventTypeItemSaved)
	}

	item, err := h.items.FindByCode(ctx, saved.ItemCode)
	if errors.Is(err, integration.ErrItemNotFound) {
		h.logger.Warn("Saved item not found, nothing to sync", zap.String("item_code", saved.ItemCode))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load item %s: %w", saved.ItemCode, err)
	}

	h.sync.OnItemSaved(ctx, item)
	return nil
}

var _ shared.EventHandler = (*ItemSavedHandler)(nil)
