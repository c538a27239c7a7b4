package loyalty

import (
	"context"

	"github.com/google/uuid"
)

// OrderSnapshot is the slice of an order the rewards engine needs.
type OrderSnapshot struct {
	ID         uuid.UUID
	CustomerID *uuid.UUID
	Subtotal   float64
	Total      float64
}

// Repository defines the persistence contract for loyalty.
type Repository interface {
	GetOrderSnapshot(ctx context.Context, tenantID, orderID uuid.UUID) (*OrderSnapshot, error)

	ListActivePrograms(ctx context.Context, tenantID uuid.UUID) ([]*Program, error)
	GetProgram(ctx context.Context, tenantID, programID uuid.UUID) (*Program, error)

	GetMember(ctx context.Context, tenantID, programID, customerID uuid.UUID) (*Member, error)
	ListMembers(ctx context.Context, tenantID, customerID uuid.UUID) ([]*Member, error)

	// HasOrderEntry reports whether the ledger already holds an accrual for
	// this order under this program. The idempotency gate for ApplyOnClose.
	HasOrderEntry(ctx context.Context, tenantID, programID, orderID uuid.UUID) (bool, error)

	// RecordAccrual appends the ledger entry and adjusts the member's
	// balances and visit count in one transaction. The member row is locked.
	RecordAccrual(ctx context.Context, entry *LedgerEntry, a *Accrual) error

	// RecordConversion deducts points and mints the voucher in one
	// transaction. The member row is locked and the balance re-checked.
	RecordConversion(ctx context.Context, entry *LedgerEntry, v *Voucher) error

	GetVoucherByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Voucher, error)

	// ListCustomerVouchers returns active, unexhausted vouchers bound to the
	// customer.
	ListCustomerVouchers(ctx context.Context, tenantID, customerID uuid.UUID) ([]*Voucher, error)

	// ConsumeVoucher decrements uses_remaining and appends the redemption
	// entry. Fails if no uses remain at lock time.
	ConsumeVoucher(ctx context.Context, tenantID, voucherID uuid.UUID, entry *LedgerEntry) error

	ListLedger(ctx context.Context, tenantID, customerID uuid.UUID, limit int) ([]*LedgerEntry, error)
}
