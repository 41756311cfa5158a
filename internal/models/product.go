package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog record. StockCached is a denormalized copy of the
// stock aggregator's output so storefront reads never touch the ledger; it
// is never authoritative.
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	SKU         string    `json:"sku" db:"sku"`
	HasVariants bool      `json:"has_variants" db:"has_variants"`
	StockCached int       `json:"stock_cached" db:"stock_cached"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Variant is a sellable sub-SKU of a product with its own stock tracking.
type Variant struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ProductID   uuid.UUID `json:"product_id" db:"product_id"`
	Name        string    `json:"name" db:"name"`
	SKU         string    `json:"sku" db:"sku"`
	StockCached int       `json:"stock_cached" db:"stock_cached"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
