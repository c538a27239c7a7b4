package loyalty

import (
	"time"

	"github.com/google/uuid"
)

// ProgramType selects the accrual rule a loyalty program runs on.
type ProgramType string

const (
	ProgramPoints   ProgramType = "points"
	ProgramCashback ProgramType = "cashback"
	ProgramStamp    ProgramType = "stamp"
)

// VoucherExpiryDays is the validity window for vouchers minted from points.
const VoucherExpiryDays = 30

// Program is a tenant-scoped loyalty scheme. Exactly one of the config
// groups is meaningful depending on Type.
type Program struct {
	ID       uuid.UUID   `json:"id"`
	TenantID uuid.UUID   `json:"tenant_id"`
	Name     string      `json:"name"`
	Type     ProgramType `json:"type"`
	Active   bool        `json:"active"`

	// points: earned = floor(order subtotal * EarnRate).
	EarnRate float64 `json:"earn_rate,omitempty"`
	// PointsPerUnit is how many points buy one currency unit when converting
	// to a voucher.
	PointsPerUnit int64 `json:"points_per_unit,omitempty"`

	// cashback: ladder of visit-count tiers, highest qualifying tier wins.
	Ladder []CashbackTier `json:"ladder,omitempty"`

	// stamp: one stamp per qualifying order; a full card mints a reward.
	StampGoal int `json:"stamp_goal,omitempty"`

	// Orders below this amount accrue nothing.
	MinOrderAmount float64 `json:"min_order_amount,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CashbackTier maps a minimum visit count to a cashback percentage.
type CashbackTier struct {
	MinVisits int     `json:"min_visits"`
	Percent   float64 `json:"percent"`
}

// Member is a customer's enrollment in a program, carrying running balances.
type Member struct {
	ID              uuid.UUID `json:"id"`
	TenantID        uuid.UUID `json:"tenant_id"`
	ProgramID       uuid.UUID `json:"program_id"`
	CustomerID      uuid.UUID `json:"customer_id"`
	PointsBalance   int64     `json:"points_balance"`
	CashbackBalance float64   `json:"cashback_balance"`
	Stamps          int       `json:"stamps"`
	VisitCount      int       `json:"visit_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EntryType classifies a ledger row.
type EntryType string

const (
	EntryEarnPoints    EntryType = "earn_points"
	EntryEarnCashback  EntryType = "earn_cashback"
	EntryEarnStamp     EntryType = "earn_stamp"
	EntryRedeemPoints  EntryType = "redeem_points"
	EntryRedeemVoucher EntryType = "redeem_voucher"
)

// LedgerEntry is an append-only record of a balance movement. Entries are
// never updated or deleted; balances are the fold of the ledger.
type LedgerEntry struct {
	ID         uuid.UUID  `json:"id"`
	TenantID   uuid.UUID  `json:"tenant_id"`
	ProgramID  uuid.UUID  `json:"program_id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	OrderID    *uuid.UUID `json:"order_id,omitempty"`
	Type       EntryType  `json:"type"`
	Points     int64      `json:"points,omitempty"`
	Amount     float64    `json:"amount,omitempty"`
	Stamps     int        `json:"stamps,omitempty"`
	Note       string     `json:"note,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// DiscountType mirrors the pricing module's voucher value semantics.
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountValue   DiscountType = "value"
)

// Voucher is a redeemable discount instrument. Vouchers minted from points
// are single-use and expire after VoucherExpiryDays.
type Voucher struct {
	ID                uuid.UUID    `json:"id"`
	TenantID          uuid.UUID    `json:"tenant_id"`
	Code              string       `json:"code"`
	DiscountType      DiscountType `json:"discount_type"`
	Value             float64      `json:"value"`
	MaxDiscountAmount float64      `json:"max_discount_amount,omitempty"`
	MinOrderAmount    float64      `json:"min_order_amount,omitempty"`
	UsesRemaining     int          `json:"uses_remaining"`
	Active            bool         `json:"active"`
	ExpiresAt         *time.Time   `json:"expires_at,omitempty"`

	// Empty means any customer may redeem.
	AllowedCustomerIDs []uuid.UUID `json:"allowed_customer_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// RedemptionResult reports a voucher evaluation. A voucher that fails any
// check yields Discount 0 and Applicable false with the failing reason; the
// checkout proceeds without the voucher rather than erroring.
type RedemptionResult struct {
	Discount   float64 `json:"discount"`
	Applicable bool    `json:"applicable"`
	Reason     string  `json:"reason,omitempty"`
}

// Accrual is one program's reward for a closed order.
type Accrual struct {
	ProgramID   uuid.UUID   `json:"program_id"`
	ProgramName string      `json:"program_name"`
	Type        ProgramType `json:"type"`
	Points      int64       `json:"points,omitempty"`
	Cashback    float64     `json:"cashback,omitempty"`
	Stamps      int         `json:"stamps,omitempty"`
}

// RedeemRequest asks to apply a voucher at checkout.
type RedeemRequest struct {
	Code       string  `json:"code"`
	CustomerID string  `json:"customer_id,omitempty"`
	OrderTotal float64 `json:"order_total"`
}

// ConvertRequest mints a voucher from a member's points balance.
type ConvertRequest struct {
	CustomerID string `json:"customer_id"`
	ProgramID  string `json:"program_id"`
	Points     int64  `json:"points"`
}

// Summary is a customer's consolidated loyalty position.
type Summary struct {
	CustomerID uuid.UUID      `json:"customer_id"`
	Members    []*Member      `json:"members"`
	Vouchers   []*Voucher     `json:"vouchers"`
	Recent     []*LedgerEntry `json:"recent_activity"`
}
