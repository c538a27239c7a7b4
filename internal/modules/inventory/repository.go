package inventory

import (
	"context"

	"github.com/google/uuid"
)

// OrderLineQty is the product and quantity slice of a closed order line.
type OrderLineQty struct {
	ProductID int64
	Quantity  int
}

// Repository defines the persistence contract for inventory.
type Repository interface {
	ListStock(ctx context.Context, tenantID, branchID uuid.UUID) ([]*StockItem, error)
	ListLowStock(ctx context.Context, tenantID, branchID uuid.UUID) ([]*StockItem, error)

	// GetOrderLines returns product and quantity for each line of the order.
	GetOrderLines(ctx context.Context, tenantID, orderID uuid.UUID) ([]*OrderLineQty, error)

	// ComponentsFor returns recipe components for the given products.
	ComponentsFor(ctx context.Context, tenantID uuid.UUID, productIDs []int64) ([]*RecipeComponent, error)

	// HasDeduction reports whether the order was already deducted. The
	// idempotency gate for the close hook.
	HasDeduction(ctx context.Context, tenantID, orderID uuid.UUID) (bool, error)

	// ApplyMovements appends the movements and adjusts stock quantities in
	// one transaction. Quantities may go negative; the low-stock report
	// surfaces them.
	ApplyMovements(ctx context.Context, movements []*Movement) error
}
