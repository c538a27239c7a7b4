package settlement

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/mkandawire/servipos-backend/internal/money"
	"github.com/mkandawire/servipos-backend/internal/modules/auth"
	"github.com/mkandawire/servipos-backend/internal/modules/order"
)

// Service defines the settlement business logic.
type Service interface {
	// PreviewSplit returns the per-part amounts for an equal split of the
	// order total. Nothing is persisted.
	PreviewSplit(ctx context.Context, ac auth.Context, orderID string, parts int) ([]float64, error)

	// Apply validates and records the payments against the order, closing it
	// once the required amount is satisfied. Re-applying to a paid order is an
	// idempotent no-op.
	Apply(ctx context.Context, ac auth.Context, orderID string, req ApplyRequest) (*ApplyResult, error)

	// ListPayments returns the payment rows recorded against an order.
	ListPayments(ctx context.Context, ac auth.Context, orderID string) ([]*Payment, error)
}

type service struct {
	repo  Repository
	hooks []CloseHook
}

// NewService creates a new settlement service. Hooks fire after a successful
// close, in registration order.
func NewService(repo Repository, hooks ...CloseHook) Service {
	return &service{repo: repo, hooks: hooks}
}

func (s *service) PreviewSplit(ctx context.Context, ac auth.Context, orderID string, parts int) ([]float64, error) {
	if parts < 1 {
		return nil, fmt.Errorf("bad_parts: part count must be at least 1")
	}
	o, err := s.getOrder(ctx, ac, orderID)
	if err != nil {
		return nil, err
	}
	return SplitParts(o.Total, parts), nil
}

func (s *service) Apply(ctx context.Context, ac auth.Context, orderID string, req ApplyRequest) (*ApplyResult, error) {
	if len(req.Payments) == 0 {
		return nil, fmt.Errorf("no_payments: at least one payment entry is required")
	}
	amounts := make([]float64, len(req.Payments))
	for i, p := range req.Payments {
		method := Tender(strings.ToLower(p.Method))
		if !method.Valid() {
			return nil, fmt.Errorf("invalid_tender: %q is not an accepted method (cash, card, online)", p.Method)
		}
		if p.Amount <= 0 {
			return nil, fmt.Errorf("invalid_amount: payment amounts must be greater than zero")
		}
		req.Payments[i].Method = string(method)
		amounts[i] = p.Amount
	}

	o, err := s.getOrder(ctx, ac, orderID)
	if err != nil {
		return nil, err
	}

	// Idempotent: an already-paid order reports success without new rows.
	if o.PaymentStatus == order.PaymentPaid {
		return &ApplyResult{
			OrderID:       o.ID,
			PaymentStatus: order.PaymentPaid,
			Method:        o.PaymentMethod,
			AlreadyPaid:   true,
		}, nil
	}

	// Terminal unpaid orders (voided, cancelled, refunded, or a closed order
	// that never settled) take no further payments.
	if o.Status.Terminal() {
		return nil, fmt.Errorf("order_not_settleable: order is %s", o.Status)
	}

	if err := ValidateAmounts(o.Total, amounts, req.Parts); err != nil {
		return nil, err
	}

	method := ResolveMethod(req.Payments)
	payments := make([]*Payment, len(req.Payments))
	for i, p := range req.Payments {
		payments[i] = &Payment{
			ID:        uuid.New(),
			TenantID:  ac.TenantID,
			BranchID:  ac.BranchID,
			OrderID:   o.ID,
			Method:    Tender(p.Method),
			Amount:    p.Amount,
			Status:    PaymentCompleted,
			CreatedBy: ac.UserID,
		}
	}

	outcome, err := s.repo.ApplyPayments(ctx, ac.TenantID, o.ID, payments, method, req.Parts)
	if err != nil {
		return nil, err
	}
	if outcome.AlreadyPaid {
		return &ApplyResult{
			OrderID:       o.ID,
			PaymentStatus: order.PaymentPaid,
			Method:        outcome.Method,
			AlreadyPaid:   true,
		}, nil
	}

	// The settlement is committed; downstream hooks are best-effort.
	for _, hook := range s.hooks {
		if hookErr := hook.OrderClosed(ctx, ac, o.ID); hookErr != nil {
			log.Printf("settlement: close hook failed for order %s: %v", o.ID, hookErr)
		}
	}

	var sum float64
	for _, a := range amounts {
		sum += a
	}
	change := money.Round2(sum - o.Total)
	if change < 0 {
		change = 0
	}

	return &ApplyResult{
		OrderID:       o.ID,
		PaymentStatus: order.PaymentPaid,
		Method:        method,
		ChangeDue:     change,
	}, nil
}

func (s *service) ListPayments(ctx context.Context, ac auth.Context, orderID string) ([]*Payment, error) {
	o, err := s.getOrder(ctx, ac, orderID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByOrder(ctx, ac.TenantID, o.ID)
}

func (s *service) getOrder(ctx context.Context, ac auth.Context, orderID string) (*OrderTotals, error) {
	oid, err := uuid.Parse(orderID)
	if err != nil {
		return nil, fmt.Errorf("order_not_found: invalid order id")
	}
	o, err := s.repo.GetOrderTotals(ctx, ac.TenantID, oid)
	if err != nil {
		return nil, fmt.Errorf("order_not_found: %w", err)
	}
	return o, nil
}
