package inventory

import (
	"time"

	"github.com/google/uuid"
)

// StockItem is a branch-scoped ingredient or sellable unit tracked by
// quantity.
type StockItem struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	BranchID     uuid.UUID `json:"branch_id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"` // pcs, kg, l
	Quantity     float64   `json:"quantity"`
	ReorderLevel float64   `json:"reorder_level"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RecipeComponent maps a menu product to a stock item consumption per unit
// sold. Products without components deduct nothing.
type RecipeComponent struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	ProductID   int64     `json:"product_id"`
	StockItemID uuid.UUID `json:"stock_item_id"`
	QtyPerUnit  float64   `json:"qty_per_unit"`
}

// Movement is an append-only stock change record.
type Movement struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	BranchID    uuid.UUID  `json:"branch_id"`
	StockItemID uuid.UUID  `json:"stock_item_id"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	Delta       float64    `json:"delta"` // negative for consumption
	Reason      string     `json:"reason"` // sale | adjustment | restock
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AdjustRequest is a manual stock correction or restock.
type AdjustRequest struct {
	StockItemID string  `json:"stock_item_id"`
	Delta       float64 `json:"delta"`
	Reason      string  `json:"reason"`
}
