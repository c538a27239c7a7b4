package kitchen

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mkandawire/servipos-backend/internal/modules/auth"
	"github.com/mkandawire/servipos-backend/internal/modules/order"
)

// Service defines the fire/hold business logic for open orders.
type Service interface {
	// Fire sends lines to the kitchen. An empty product subset fires every
	// line; the first fire advances an open order to sent.
	Fire(ctx context.Context, ac auth.Context, orderID string, req FireRequest) (*State, error)

	// Hold pulls lines back from the fire queue.
	Hold(ctx context.Context, ac auth.Context, orderID string, req HoldRequest) (*State, error)

	// State returns the current kitchen view of an order.
	State(ctx context.Context, ac auth.Context, orderID string) (*State, error)
}

type service struct{ repo Repository }

// NewService creates a new kitchen service.
func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) Fire(ctx context.Context, ac auth.Context, orderID string, req FireRequest) (*State, error) {
	st, lines, err := s.load(ctx, ac, orderID)
	if err != nil {
		return nil, err
	}
	if st.Status.Terminal() {
		return nil, fmt.Errorf("order_immutable: cannot fire lines on a %s order", st.Status)
	}

	selected := selectLines(lines, req.ProductIDs)
	if len(selected) == 0 {
		return nil, fmt.Errorf("no_matching_lines: no lines match the requested products")
	}

	fired := mergeIDs(st.FiredLineIDs, selected)
	held := removeIDs(st.HeldLineIDs, selected)

	status := st.Status
	if status == order.StatusOpen || status == order.StatusHeld {
		status = order.StatusSent
	}

	if err := s.repo.UpdateKitchenState(ctx, ac.TenantID, st.OrderID, fired, held, status); err != nil {
		return nil, err
	}
	return &State{OrderID: st.OrderID, Status: status, FiredLineIDs: fired, HeldLineIDs: held}, nil
}

func (s *service) Hold(ctx context.Context, ac auth.Context, orderID string, req HoldRequest) (*State, error) {
	st, lines, err := s.load(ctx, ac, orderID)
	if err != nil {
		return nil, err
	}
	if st.Status.Terminal() {
		return nil, fmt.Errorf("order_immutable: cannot hold lines on a %s order", st.Status)
	}

	selected := selectLines(lines, req.ProductIDs)
	if len(selected) == 0 {
		return nil, fmt.Errorf("no_matching_lines: no lines match the requested products")
	}

	held := mergeIDs(st.HeldLineIDs, selected)
	fired := removeIDs(st.FiredLineIDs, selected)

	// Holding every line of an open order parks the whole ticket.
	status := st.Status
	if status == order.StatusOpen && len(held) == len(lines) {
		status = order.StatusHeld
	}

	if err := s.repo.UpdateKitchenState(ctx, ac.TenantID, st.OrderID, fired, held, status); err != nil {
		return nil, err
	}
	return &State{OrderID: st.OrderID, Status: status, FiredLineIDs: fired, HeldLineIDs: held}, nil
}

func (s *service) State(ctx context.Context, ac auth.Context, orderID string) (*State, error) {
	st, _, err := s.load(ctx, ac, orderID)
	return st, err
}

func (s *service) load(ctx context.Context, ac auth.Context, orderID string) (*State, []LineRef, error) {
	oid, err := uuid.Parse(orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("order_not_found: invalid order id")
	}
	st, lines, err := s.repo.GetOrderKitchen(ctx, ac.TenantID, oid)
	if err != nil {
		return nil, nil, fmt.Errorf("order_not_found: %w", err)
	}
	return st, lines, nil
}

// ── set helpers ──────────────────────────────────────────────────────────────

// selectLines resolves a product-id subset to line ids; empty subset = all.
func selectLines(lines []LineRef, productIDs []int64) []uuid.UUID {
	if len(productIDs) == 0 {
		ids := make([]uuid.UUID, len(lines))
		for i, ln := range lines {
			ids[i] = ln.ID
		}
		return ids
	}
	wanted := make(map[int64]bool, len(productIDs))
	for _, pid := range productIDs {
		wanted[pid] = true
	}
	var ids []uuid.UUID
	for _, ln := range lines {
		if wanted[ln.ProductID] {
			ids = append(ids, ln.ID)
		}
	}
	return ids
}

func mergeIDs(existing, add []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(existing)+len(add))
	out := make([]uuid.UUID, 0, len(existing)+len(add))
	for _, id := range existing {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range add {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func removeIDs(existing, drop []uuid.UUID) []uuid.UUID {
	dropSet := make(map[uuid.UUID]bool, len(drop))
	for _, id := range drop {
		dropSet[id] = true
	}
	out := make([]uuid.UUID, 0, len(existing))
	for _, id := range existing {
		if !dropSet[id] {
			out = append(out, id)
		}
	}
	return out
}
