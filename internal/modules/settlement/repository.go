package settlement

import (
	"context"

	"github.com/google/uuid"
)

// Outcome is what ApplyPayments reports back from inside its transaction.
type Outcome struct {
	AlreadyPaid bool
	Method      string
}

// Repository defines settlement data access. ApplyPayments is the one
// financial write: it must lock the order row, re-check the paid state and
// the amount rule under the lock, and commit payments plus the order update
// atomically or not at all.
type Repository interface {
	// GetOrderTotals loads the settlement projection of an order.
	GetOrderTotals(ctx context.Context, tenantID, orderID uuid.UUID) (*OrderTotals, error)

	// ApplyPayments records the payments and closes the order inside a single
	// row-locked transaction. A concurrently settled order yields an
	// AlreadyPaid outcome with no rows written.
	ApplyPayments(ctx context.Context, tenantID, orderID uuid.UUID, payments []*Payment, method string, parts int) (*Outcome, error)

	// ListByOrder returns the payment rows recorded against an order.
	ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*Payment, error)
}
