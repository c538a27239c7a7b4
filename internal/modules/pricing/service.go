package pricing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mkandawire/servipos-backend/internal/modules/auth"
)

// Service defines the pricing business logic.
type Service interface {
	// Quote resolves tenant configuration and computes the totals breakdown
	// for the given lines without persisting anything.
	Quote(ctx context.Context, ac auth.Context, req QuoteRequest) (*TotalsBreakdown, error)
}

type service struct {
	repo Repository
}

// NewService creates a new pricing service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Quote(ctx context.Context, ac auth.Context, req QuoteRequest) (*TotalsBreakdown, error) {
	rates, err := s.repo.GetTenantRates(ctx, ac.TenantID)
	if err != nil {
		return nil, fmt.Errorf("tenant_rates_missing: %w", err)
	}

	in := Input{
		Lines:      req.Lines,
		OrderType:  req.OrderType,
		GuestCount: req.GuestCount,
		Discount:   req.Discount,
		Actor:      ac,
		Rates:      rates,
	}

	// An unknown, malformed, or inactive scheme means no discount, not a failure.
	if req.Discount.Mode == DiscountScheme && req.Discount.SchemeID != "" {
		if _, err := uuid.Parse(req.Discount.SchemeID); err == nil {
			scheme, err := s.repo.GetScheme(ctx, ac.TenantID, req.Discount.SchemeID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("load scheme: %w", err)
			}
			in.Scheme = scheme
		}
	}

	if req.OrderType == TypeDelivery && req.AggregatorID > 0 {
		percent, err := s.repo.GetAggregatorCommission(ctx, ac.TenantID, req.AggregatorID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("load aggregator: %w", err)
		}
		in.CommissionPercent = percent
	}

	return ComputeTotals(in)
}
