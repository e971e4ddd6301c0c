package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/catalog-sync/internal/domain/integration"
)

// ItemModel maps the ERP item table
type ItemModel struct {
	Code            string          `gorm:"type:varchar(140);primaryKey"`
	ItemName        string          `gorm:"type:varchar(255)"`
	Description     string          `gorm:"type:text"`
	Brand           string          `gorm:"type:varchar(140)"`
	StandardRate    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	WeightPerUnit   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	IsSalesItem     bool            `gorm:"not null;default:true;index:idx_items_sales_modified,priority:1"`
	RemoteProductID string          `gorm:"type:varchar(100)"`
	ModifiedAt      time.Time       `gorm:"not null;index:idx_items_sales_modified,priority:2"`
}

// TableName returns the table name for GORM
func (ItemModel) TableName() string {
	return "items"
}

// ToDomain converts the persistence model to a domain Item
func (m *ItemModel) ToDomain() *integration.Item {
	return &integration.Item{
		Code:            m.Code,
		Name:            m.ItemName,
		Description:     m.Description,
		Brand:           m.Brand,
		StandardRate:    m.StandardRate,
		WeightPerUnit:   m.WeightPerUnit,
		IsSalesItem:     m.IsSalesItem,
		RemoteProductID: m.RemoteProductID,
		ModifiedAt:      m.ModifiedAt,
	}
}

// FromDomain populates the persistence model from a domain Item
func (m *ItemModel) FromDomain(i *integration.Item) {
	m.Code = i.Code
	m.ItemName = i.Name
	m.Description = i.Description
	m.Brand = i.Brand
	m.StandardRate = i.StandardRate
	m.WeightPerUnit = i.WeightPerUnit
	m.IsSalesItem = i.IsSalesItem
	m.RemoteProductID = i.RemoteProductID
	m.ModifiedAt = i.ModifiedAt.UTC()
}

// ItemModelFromDomain creates a new persistence model from a domain Item
func ItemModelFromDomain(i *integration.Item) *ItemModel {
	m := &ItemModel{}
	m.FromDomain(i)
	return m
}

// ItemPriceModel maps a price-list rate for an item
type ItemPriceModel struct {
	ID            uint            `gorm:"primaryKey;autoIncrement"`
	ItemCode      string          `gorm:"type:varchar(140);not null;index:idx_item_prices_item,priority:1"`
	PriceList     string          `gorm:"type:varchar(140);not null"`
	PriceListRate decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Selling       bool            `gorm:"not null;default:true"`
	UpdatedAt     time.Time       `gorm:"not null;index:idx_item_prices_item,priority:2"`
}

// TableName returns the table name for GORM
func (ItemPriceModel) TableName() string {
	return "item_prices"
}

// BinModel maps the per-warehouse stock of an item
type BinModel struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"`
	ItemCode  string          `gorm:"type:varchar(140);not null;index"`
	Warehouse string          `gorm:"type:varchar(140);not null"`
	ActualQty decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (BinModel) TableName() string {
	return "bins"
}
