package shift

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkandawire/servipos-backend/internal/money"
)

// Status represents the lifecycle state of a cash-drawer shift.
type Status string

const (
	StatusOpen       Status = "open"
	StatusClosed     Status = "closed"
	StatusReconciled Status = "reconciled"
)

// DefaultVarianceThreshold flags drawer variances above this many currency
// units for manager review. Soft signal only; closing never blocks on it.
const DefaultVarianceThreshold = 10.0

// Shift is a cashier's bounded working session. Shifts are never deleted;
// they form a permanent audit trail of drawer reconciliation.
type Shift struct {
	ID             uuid.UUID `json:"id"`
	TenantID       uuid.UUID `json:"tenant_id"`
	BranchID       uuid.UUID `json:"branch_id"`
	RegisterID     string    `json:"register_id,omitempty"`
	ShiftNumber    string    `json:"shift_number"`
	Status         Status    `json:"status"`
	OpeningBalance float64   `json:"opening_balance"`

	StartedBy uuid.UUID  `json:"started_by"`
	StartedAt time.Time  `json:"started_at"`
	EndedBy   *uuid.UUID `json:"ended_by,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	// Window aggregates over orders created during the shift.
	OrderCount     int     `json:"order_count"`
	CustomerCount  int     `json:"customer_count"`
	TotalSales     float64 `json:"total_sales"`
	TotalDiscounts float64 `json:"total_discounts"`
	TotalTax       float64 `json:"total_tax"`
	TotalRefunds   float64 `json:"total_refunds"`

	// Per-tender sales and refunds from payment records.
	CashSales   float64 `json:"cash_sales"`
	CardSales   float64 `json:"card_sales"`
	OtherSales  float64 `json:"other_sales"`
	CashRefunds float64 `json:"cash_refunds"`

	// Expected vs counted drawer amounts per tender.
	ExpectedCash  float64 `json:"expected_cash"`
	ExpectedCard  float64 `json:"expected_card"`
	ExpectedOther float64 `json:"expected_other"`
	ActualCash    float64 `json:"actual_cash"`
	ActualCard    float64 `json:"actual_card"`
	ActualOther   float64 `json:"actual_other"`
	VarianceCash  float64 `json:"variance_cash"`
	VarianceCard  float64 `json:"variance_card"`
	VarianceOther float64 `json:"variance_other"`
	TotalVariance float64 `json:"total_variance"`

	// VarianceWarning flags |total variance| above the tenant threshold for
	// manager review. The close still succeeds.
	VarianceWarning bool `json:"variance_warning"`

	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WindowTotals aggregates the orders and payments created during the shift
// window. HasTenderBreakdown is false when no payment records exist for the
// window, in which case all sales are attributed to cash (degraded mode).
type WindowTotals struct {
	OrderCount     int
	CustomerCount  int
	TotalSales     float64
	TotalDiscounts float64
	TotalTax       float64
	TotalRefunds   float64

	CashSales   float64
	CardSales   float64
	OtherSales  float64
	CashRefunds float64

	HasTenderBreakdown bool
}

// Actuals are the cashier's counted drawer amounts. Nil means "not counted":
// the expected figure is assumed.
type Actuals struct {
	Cash  *float64 `json:"actual_cash,omitempty"`
	Card  *float64 `json:"actual_card,omitempty"`
	Other *float64 `json:"actual_other,omitempty"`
}

// ApplyWindow folds the window aggregates into the shift and derives the
// expected drawer amounts per tender.
func (s *Shift) ApplyWindow(w WindowTotals) {
	s.OrderCount = w.OrderCount
	s.CustomerCount = w.CustomerCount
	s.TotalSales = money.Round2(w.TotalSales)
	s.TotalDiscounts = money.Round2(w.TotalDiscounts)
	s.TotalTax = money.Round2(w.TotalTax)
	s.TotalRefunds = money.Round2(w.TotalRefunds)

	cashSales, cardSales, otherSales := w.CashSales, w.CardSales, w.OtherSales
	cashRefunds := w.CashRefunds
	if !w.HasTenderBreakdown {
		// No payment-method breakdown available: attribute everything to cash.
		cashSales, cardSales, otherSales = w.TotalSales, 0, 0
		cashRefunds = w.TotalRefunds
	}
	s.CashSales = money.Round2(cashSales)
	s.CardSales = money.Round2(cardSales)
	s.OtherSales = money.Round2(otherSales)
	s.CashRefunds = money.Round2(cashRefunds)

	s.ExpectedCash = money.Round2(s.OpeningBalance + s.CashSales - s.CashRefunds)
	s.ExpectedCard = s.CardSales
	s.ExpectedOther = s.OtherSales
}

// ApplyActuals records the counted amounts (defaulting to expected when not
// counted), computes the per-tender and total variances, and flags a warning
// when the total variance magnitude exceeds the threshold.
func (s *Shift) ApplyActuals(a Actuals, threshold float64) {
	s.ActualCash = orDefault(a.Cash, s.ExpectedCash)
	s.ActualCard = orDefault(a.Card, s.ExpectedCard)
	s.ActualOther = orDefault(a.Other, s.ExpectedOther)

	s.VarianceCash = money.Round2(s.ActualCash - s.ExpectedCash)
	s.VarianceCard = money.Round2(s.ActualCard - s.ExpectedCard)
	s.VarianceOther = money.Round2(s.ActualOther - s.ExpectedOther)
	s.TotalVariance = money.Round2(s.VarianceCash + s.VarianceCard + s.VarianceOther)

	magnitude := s.TotalVariance
	if magnitude < 0 {
		magnitude = -magnitude
	}
	s.VarianceWarning = magnitude > threshold
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// AuditRecord is the immutable journal row appended on every shift
// transition. Figures is the full JSON snapshot of the shift at that moment.
type AuditRecord struct {
	ID        uuid.UUID `json:"id"`
	ShiftID   uuid.UUID `json:"shift_id"`
	Action    string    `json:"action"` // open | close | complete | reconcile
	ActorID   uuid.UUID `json:"actor_id"`
	Figures   []byte    `json:"figures"`
	CreatedAt time.Time `json:"created_at"`
}

// OpenShiftRequest is the payload for opening a shift.
type OpenShiftRequest struct {
	OpeningBalance float64 `json:"opening_balance"`
	RegisterID     string  `json:"register_id,omitempty"`
}

// CloseShiftRequest is the payload for closing, completing, or reconciling a
// shift.
type CloseShiftRequest struct {
	Actuals
	Notes string `json:"notes,omitempty"`
}
