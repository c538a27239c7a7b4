package kitchen

import (
	"context"

	"github.com/google/uuid"

	"github.com/mkandawire/servipos-backend/internal/modules/order"
)

// Repository defines the kitchen-state data access. Updates run inside a
// row-locked transaction so two terminals cannot interleave fire/hold writes.
type Repository interface {
	// GetOrderKitchen loads an order's status, lines, and kitchen sets.
	GetOrderKitchen(ctx context.Context, tenantID, orderID uuid.UUID) (*State, []LineRef, error)

	// UpdateKitchenState rewrites the fired/held sets (and optionally the
	// status) under an exclusive row lock, verifying the order is still open.
	UpdateKitchenState(ctx context.Context, tenantID, orderID uuid.UUID, fired, held []uuid.UUID, status order.Status) error
}
