package integration

import "github.com/erp/catalog-sync/internal/domain/shared"

const (
	EventTypeItemSaved = "ItemSaved"
	AggregateTypeItem  = "Item"
)

// ItemSavedEvent is raised by the host ERP after an item is created or saved
type ItemSavedEvent struct {
	shared.BaseDomainEvent
	ItemCode string `json:"item_code"`
}

// NewItemSavedEvent creates an ItemSavedEvent for the given item code
func NewItemSavedEvent(itemCode string) *ItemSavedEvent {
	return &ItemSavedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemSaved, AggregateTypeItem, itemCode),
		ItemCode:        itemCode,
	}
}
