package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkandawire/servipos-backend/internal/modules/auth"
	"github.com/mkandawire/servipos-backend/internal/modules/pricing"
)

// Service defines the order management business logic.
type Service interface {
	// Create prices the lines, persists the order atomically, and honours the
	// client idempotency token: a duplicate create returns the existing order.
	Create(ctx context.Context, ac auth.Context, req CreateOrderRequest) (*Order, error)

	// Get retrieves a full order with its lines.
	Get(ctx context.Context, ac auth.Context, id string) (*Order, error)

	// GetByNumber retrieves an order by its human-readable number.
	GetByNumber(ctx context.Context, ac auth.Context, orderNumber string) (*Order, error)

	// List returns the branch's orders, optionally filtered by status.
	List(ctx context.Context, ac auth.Context, status string) ([]*Order, error)

	// UpdateStatus advances an order through its lifecycle state machine.
	UpdateStatus(ctx context.Context, ac auth.Context, id string, req UpdateStatusRequest) (*Order, error)
}

type service struct {
	repo    Repository
	pricing pricing.Service
}

// NewService creates a new order service.
func NewService(repo Repository, pricingSvc pricing.Service) Service {
	return &service{repo: repo, pricing: pricingSvc}
}

func (s *service) Create(ctx context.Context, ac auth.Context, req CreateOrderRequest) (*Order, error) {
	// Duplicate submissions from flaky POS links resolve to the first order.
	if req.IdempotencyToken != "" {
		existing, err := s.repo.GetByToken(ctx, ac.TenantID, req.IdempotencyToken)
		if err == nil && existing != nil {
			return existing, nil
		}
	}

	breakdown, err := s.pricing.Quote(ctx, ac, pricing.QuoteRequest{
		OrderType:    pricing.OrderType(strings.ToLower(req.OrderType)),
		Lines:        req.Lines,
		Discount:     req.Discount,
		GuestCount:   req.GuestCount,
		AggregatorID: req.AggregatorID,
	})
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:          uuid.New(),
		TenantID:    ac.TenantID,
		BranchID:    ac.BranchID,
		OrderNumber: generateOrderNumber(),
		Type:        pricing.OrderType(strings.ToLower(req.OrderType)),
		Status:      StatusOpen,
		GuestCount:  req.GuestCount,

		Subtotal:          breakdown.Subtotal,
		DiscountAmount:    breakdown.DiscountAmount,
		DiscountMode:      string(breakdown.DiscountMode),
		DiscountType:      string(breakdown.DiscountType),
		DiscountValue:     breakdown.DiscountValue,
		TaxPercent:        breakdown.TaxPercent,
		TaxAmount:         breakdown.TaxAmount,
		ServicePercent:    breakdown.ServicePercent,
		ServiceAmount:     breakdown.ServiceAmount,
		CommissionPercent: breakdown.CommissionPercent,
		CommissionAmount:  breakdown.CommissionAmount,
		Total:             breakdown.Total,

		PaymentStatus:    PaymentUnpaid,
		AggregatorID:     req.AggregatorID,
		FiredLineIDs:     []uuid.UUID{},
		HeldLineIDs:      []uuid.UUID{},
		IdempotencyToken: req.IdempotencyToken,
		Notes:            req.Notes,
		CreatedBy:        ac.UserID,
	}

	if req.TableID != "" {
		tid, err := uuid.Parse(req.TableID)
		if err != nil {
			return nil, fmt.Errorf("bad_table: invalid table_id: %w", err)
		}
		o.TableID = &tid
	}
	if req.CustomerID != "" {
		cid, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("bad_customer: invalid customer_id: %w", err)
		}
		o.CustomerID = &cid
	}

	for i, ln := range req.Lines {
		qty := ln.Quantity
		if qty == 0 {
			qty = 1
		}
		o.Lines = append(o.Lines, &Line{
			ID:          uuid.New(),
			OrderID:     o.ID,
			ProductID:   ln.ProductID,
			ProductName: ln.ProductName,
			UnitPrice:   ln.UnitPrice,
			Quantity:    qty,
			Subtotal:    breakdown.LineSubtotals[i],
		})
	}

	// Finalised orders go straight to the kitchen with every line fired.
	if req.Finalize {
		o.Status = StatusSent
		for _, ln := range o.Lines {
			o.FiredLineIDs = append(o.FiredLineIDs, ln.ID)
		}
	}

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		// A concurrent duplicate create hits the unique token index; resolve
		// to the winner's order.
		if req.IdempotencyToken != "" &&
			(strings.Contains(err.Error(), "unique") || strings.Contains(err.Error(), "duplicate")) {
			if existing, lookupErr := s.repo.GetByToken(ctx, ac.TenantID, req.IdempotencyToken); lookupErr == nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}
	return o, nil
}

func (s *service) Get(ctx context.Context, ac auth.Context, id string) (*Order, error) {
	oid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("order_not_found: invalid order id")
	}
	o, err := s.repo.GetByID(ctx, ac.TenantID, oid)
	if err != nil {
		return nil, fmt.Errorf("order_not_found: %w", err)
	}
	return o, nil
}

func (s *service) GetByNumber(ctx context.Context, ac auth.Context, orderNumber string) (*Order, error) {
	o, err := s.repo.GetByNumber(ctx, ac.TenantID, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("order_not_found: %w", err)
	}
	return o, nil
}

func (s *service) List(ctx context.Context, ac auth.Context, status string) ([]*Order, error) {
	return s.repo.ListByBranch(ctx, ac.TenantID, ac.BranchID, status)
}

func (s *service) UpdateStatus(ctx context.Context, ac auth.Context, id string, req UpdateStatusRequest) (*Order, error) {
	o, err := s.Get(ctx, ac, id)
	if err != nil {
		return nil, err
	}

	next := Status(strings.ToLower(req.Status))
	if !CanTransition(o.Status, next) {
		return nil, fmt.Errorf("bad_transition: cannot transition order from %s to %s", o.Status, next)
	}

	var closedAt *time.Time
	if next == StatusClosed {
		now := time.Now().UTC()
		closedAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, ac.TenantID, o.ID, next, closedAt); err != nil {
		return nil, err
	}
	o.Status = next
	o.ClosedAt = closedAt
	return o, nil
}

// generateOrderNumber creates a human-readable order number: ORD-YYYYMMDD-XXXX
func generateOrderNumber() string {
	date := time.Now().UTC().Format("20060102")
	suffix := strings.ToUpper(uuid.New().String()[:4])
	return fmt.Sprintf("ORD-%s-%s", date, suffix)
}
