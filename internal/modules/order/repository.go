package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines data access for orders. Every method is tenant-scoped.
type Repository interface {
	// CreateOrder persists a new order and its lines atomically in a transaction.
	CreateOrder(ctx context.Context, o *Order) error

	// GetByID retrieves an order with its lines.
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Order, error)

	// GetByNumber retrieves an order by its human-readable order number.
	GetByNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*Order, error)

	// GetByToken retrieves an order by its client idempotency token.
	GetByToken(ctx context.Context, tenantID uuid.UUID, token string) (*Order, error)

	// ListByBranch returns the branch's orders, optionally filtered by status.
	ListByBranch(ctx context.Context, tenantID, branchID uuid.UUID, status string) ([]*Order, error)

	// UpdateStatus advances an order to a new status, stamping closed_at for
	// terminal settlement states.
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status Status, closedAt *time.Time) error
}
