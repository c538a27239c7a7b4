package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mkandawire/servipos-backend/internal/modules/auth"
)

// Service defines inventory business logic.
type Service interface {
	// OrderClosed deducts recipe components for every line of a settled
	// order. Satisfies the settlement close-hook contract. Idempotent per
	// order; products without recipes deduct nothing.
	OrderClosed(ctx context.Context, ac auth.Context, orderID uuid.UUID) error

	// Adjust applies a manual stock correction or restock.
	Adjust(ctx context.Context, ac auth.Context, req AdjustRequest) error

	ListStock(ctx context.Context, ac auth.Context) ([]*StockItem, error)
	ListLowStock(ctx context.Context, ac auth.Context) ([]*StockItem, error)
}

type service struct{ repo Repository }

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) OrderClosed(ctx context.Context, ac auth.Context, orderID uuid.UUID) error {
	done, err := s.repo.HasDeduction(ctx, ac.TenantID, orderID)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	lines, err := s.repo.GetOrderLines(ctx, ac.TenantID, orderID)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}

	productIDs := make([]int64, 0, len(lines))
	qtyByProduct := map[int64]int{}
	for _, l := range lines {
		qty := l.Quantity
		if qty < 1 {
			qty = 1
		}
		if _, seen := qtyByProduct[l.ProductID]; !seen {
			productIDs = append(productIDs, l.ProductID)
		}
		qtyByProduct[l.ProductID] += qty
	}

	components, err := s.repo.ComponentsFor(ctx, ac.TenantID, productIDs)
	if err != nil {
		return err
	}
	if len(components) == 0 {
		return nil
	}

	// Collapse to one movement per stock item.
	deltaByItem := map[uuid.UUID]float64{}
	for _, c := range components {
		deltaByItem[c.StockItemID] -= c.QtyPerUnit * float64(qtyByProduct[c.ProductID])
	}

	movements := make([]*Movement, 0, len(deltaByItem))
	for itemID, delta := range deltaByItem {
		movements = append(movements, &Movement{
			ID:          uuid.New(),
			TenantID:    ac.TenantID,
			BranchID:    ac.BranchID,
			StockItemID: itemID,
			OrderID:     &orderID,
			Delta:       delta,
			Reason:      "sale",
			CreatedBy:   ac.UserID,
		})
	}
	return s.repo.ApplyMovements(ctx, movements)
}

func (s *service) Adjust(ctx context.Context, ac auth.Context, req AdjustRequest) error {
	if !ac.IsElevated() {
		return fmt.Errorf("forbidden: stock adjustment requires a manager or admin")
	}
	itemID, err := uuid.Parse(req.StockItemID)
	if err != nil {
		return fmt.Errorf("stock_item_not_found: invalid stock item id")
	}
	if req.Delta == 0 {
		return fmt.Errorf("invalid_amount: delta cannot be zero")
	}
	reason := req.Reason
	if reason == "" {
		reason = "adjustment"
	}
	return s.repo.ApplyMovements(ctx, []*Movement{{
		ID:          uuid.New(),
		TenantID:    ac.TenantID,
		BranchID:    ac.BranchID,
		StockItemID: itemID,
		Delta:       req.Delta,
		Reason:      reason,
		CreatedBy:   ac.UserID,
	}})
}

func (s *service) ListStock(ctx context.Context, ac auth.Context) ([]*StockItem, error) {
	return s.repo.ListStock(ctx, ac.TenantID, ac.BranchID)
}

func (s *service) ListLowStock(ctx context.Context, ac auth.Context) ([]*StockItem, error) {
	return s.repo.ListLowStock(ctx, ac.TenantID, ac.BranchID)
}
