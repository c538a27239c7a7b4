package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkandawire/servipos-backend/internal/money"
	"github.com/mkandawire/servipos-backend/internal/modules/auth"
	"github.com/mkandawire/servipos-backend/internal/modules/order"
)

// Tender is a payment method.
type Tender string

const (
	TenderCash   Tender = "cash"
	TenderCard   Tender = "card"
	TenderOnline Tender = "online"
)

// Valid reports whether the tender is one of the accepted methods.
func (t Tender) Valid() bool {
	return t == TenderCash || t == TenderCard || t == TenderOnline
}

// MethodSplit is the resolved payment method when tenders are mixed.
const MethodSplit = "split"

// PaymentStatus is the lifecycle of a payment row. Payments are never edited
// in place; a void writes a reversing record.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentVoided    PaymentStatus = "voided"
)

// Payment is a single tender entry recorded against an order.
type Payment struct {
	ID        uuid.UUID     `json:"id"`
	TenantID  uuid.UUID     `json:"tenant_id"`
	BranchID  uuid.UUID     `json:"branch_id"`
	OrderID   uuid.UUID     `json:"order_id"`
	Method    Tender        `json:"method"`
	Amount    float64       `json:"amount"`
	Status    PaymentStatus `json:"status"`
	CreatedBy uuid.UUID     `json:"created_by"`
	CreatedAt time.Time     `json:"created_at"`
}

// PaymentInput is one submitted tender entry.
type PaymentInput struct {
	Method string  `json:"method"`
	Amount float64 `json:"amount"`
}

// ApplyRequest is the payload for settling an order. Parts > 0 marks an
// equal-split settlement whose amounts must match the preview exactly.
type ApplyRequest struct {
	Payments []PaymentInput `json:"payments"`
	Parts    int            `json:"parts,omitempty"`
}

// ApplyResult reports the settlement outcome.
type ApplyResult struct {
	OrderID       uuid.UUID           `json:"order_id"`
	PaymentStatus order.PaymentStatus `json:"payment_status"`
	Method        string              `json:"method"`
	ChangeDue     float64             `json:"change_due,omitempty"`
	AlreadyPaid   bool                `json:"already_paid,omitempty"`
}

// OrderTotals is the projection of an order the settlement engine needs.
type OrderTotals struct {
	ID            uuid.UUID
	Status        order.Status
	PaymentStatus order.PaymentStatus
	PaymentMethod string
	Total         float64
	CustomerID    *uuid.UUID
}

// CloseHook is a downstream collaborator notified after an order settles and
// closes. Hooks run synchronously, best-effort: a hook failure is logged and
// never rolls back the committed settlement.
type CloseHook interface {
	OrderClosed(ctx context.Context, ac auth.Context, orderID uuid.UUID) error
}

// SplitParts divides a total into n equal 2-decimal parts; the final part
// absorbs the rounding remainder so the sum equals the total exactly.
func SplitParts(total float64, parts int) []float64 {
	each := money.Round2(total / float64(parts))
	out := make([]float64, parts)
	var acc float64
	for i := 0; i < parts-1; i++ {
		out[i] = each
		acc += each
	}
	out[parts-1] = money.Round2(total - acc)
	return out
}

// ValidateAmounts checks the submitted amounts against the order total.
// Equal-split settlements (parts > 0) need an exact part count and an exact
// 2-decimal sum; free-form settlements allow overpayment (change is due) but
// never underpayment.
func ValidateAmounts(total float64, amounts []float64, parts int) error {
	var sum float64
	for _, a := range amounts {
		sum += a
	}
	sum = money.Round2(sum)

	if parts > 0 {
		if len(amounts) != parts {
			return fmt.Errorf("split_mismatch: expected %d payment entries, got %d", parts, len(amounts))
		}
		if sum != money.Round2(total) {
			return fmt.Errorf("split_mismatch: equal-split payments must sum to the total exactly")
		}
		return nil
	}

	if sum+0.0001 < total {
		return fmt.Errorf("insufficient_payment: paid %.2f of %.2f", sum, total)
	}
	return nil
}

// ResolveMethod collapses the submitted tenders into the order's recorded
// payment method: the shared tender name, or "split" when mixed.
func ResolveMethod(payments []PaymentInput) string {
	method := payments[0].Method
	for _, p := range payments[1:] {
		if p.Method != method {
			return MethodSplit
		}
	}
	return method
}
