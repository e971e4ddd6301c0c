// Package models contains GORM persistence models that map to database tables.
// Domain entities stay free of ORM tags; each model converts with ToDomain/FromDomain.
//
// Tables owned by the host ERP (items, item_prices, bins) are mapped read-mostly:
// the only column this service writes is items.remote_product_id.
package models
