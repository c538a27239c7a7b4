package shift

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for shifts.
type Repository interface {
	// CreateShift inserts the shift, assigning a per-branch per-day sequential
	// shift number. The one-open-shift-per-branch rule is enforced by a
	// partial unique index; violations surface as a conflict error.
	CreateShift(ctx context.Context, s *Shift) error

	GetByID(ctx context.Context, tenantID, shiftID uuid.UUID) (*Shift, error)

	// GetOpenShift returns the open shift for the branch, or sql.ErrNoRows.
	GetOpenShift(ctx context.Context, tenantID, branchID uuid.UUID) (*Shift, error)

	// WindowTotals aggregates orders and payments for the branch between from
	// and to.
	WindowTotals(ctx context.Context, tenantID, branchID uuid.UUID, from, to time.Time) (*WindowTotals, error)

	// CloseShift persists the computed figures and transitions the shift from
	// open to the given status (closed or reconciled), appending an audit
	// record, all in one transaction. The shift row is locked and the open
	// status re-checked under the lock.
	CloseShift(ctx context.Context, s *Shift, action string) error

	// ReconcileShift transitions a closed shift to reconciled with fresh
	// actuals and appends an audit record.
	ReconcileShift(ctx context.Context, s *Shift) error

	ListByBranch(ctx context.Context, tenantID, branchID uuid.UUID, limit int) ([]*Shift, error)

	ListAudit(ctx context.Context, tenantID, shiftID uuid.UUID) ([]*AuditRecord, error)
}
