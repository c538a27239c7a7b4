package pricing

import (
	"fmt"

	"github.com/mkandawire/servipos-backend/internal/money"
	"github.com/mkandawire/servipos-backend/internal/modules/auth"
)

// Input is everything a totals computation needs. All lookups (tenant rates,
// scheme, aggregator commission) happen before the engine runs; ComputeTotals
// itself is a pure function with no I/O.
type Input struct {
	Lines             []Line
	OrderType         OrderType
	GuestCount        int
	Discount          DiscountSpec
	Scheme            *Scheme // resolved active tenant scheme, nil when absent
	CommissionPercent float64 // only meaningful for delivery orders with an aggregator
	Actor             auth.Context
	Rates             TenantRates
}

// ComputeTotals produces the full monetary breakdown for an order. Each line
// subtotal is rounded before summation, matching how lines print on a receipt.
func ComputeTotals(in Input) (*TotalsBreakdown, error) {
	if !in.OrderType.Valid() {
		return nil, fmt.Errorf("bad_order_type: unknown order type %q", in.OrderType)
	}
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("no_lines: order must contain at least one line")
	}
	if in.OrderType == TypeDineIn && in.GuestCount <= 0 {
		return nil, fmt.Errorf("guests_required: dine-in orders need a guest count")
	}

	decimals := in.Rates.CurrencyDecimals

	lineSubtotals := make([]float64, 0, len(in.Lines))
	var subtotal float64
	for i, ln := range in.Lines {
		qty := ln.Quantity
		if qty == 0 {
			qty = 1
		}
		if ln.ProductID <= 0 {
			return nil, fmt.Errorf("bad_line: line %d has no product", i)
		}
		if ln.ProductName == "" {
			return nil, fmt.Errorf("bad_line: line %d has no product name", i)
		}
		if ln.UnitPrice < 0 {
			return nil, fmt.Errorf("bad_line: line %d has a negative unit price", i)
		}
		if qty < 1 {
			return nil, fmt.Errorf("bad_line: line %d has quantity < 1", i)
		}
		lineSubtotal := money.Round(ln.UnitPrice*float64(qty), decimals)
		lineSubtotals = append(lineSubtotals, lineSubtotal)
		subtotal += lineSubtotal
	}
	subtotal = money.Round(subtotal, decimals)
	if subtotal <= 0 {
		return nil, fmt.Errorf("subtotal_zero: order subtotal must be greater than zero")
	}

	b := &TotalsBreakdown{
		LineSubtotals:  lineSubtotals,
		Subtotal:       subtotal,
		TaxPercent:     in.Rates.TaxPercent,
		ServicePercent: in.Rates.ServicePercent,
	}

	b.DiscountAmount, b.DiscountMode, b.DiscountType, b.DiscountValue = applyDiscount(in, subtotal, decimals)

	base := subtotal - b.DiscountAmount
	if base < 0 {
		base = 0
	}
	b.Base = base

	if in.OrderType == TypeDineIn {
		b.ServiceAmount = money.Round(base*in.Rates.ServicePercent/100, decimals)
	}
	b.TaxAmount = money.Round(base*in.Rates.TaxPercent/100, decimals)

	if in.OrderType == TypeDelivery && in.CommissionPercent > 0 {
		b.CommissionPercent = in.CommissionPercent
		b.CommissionAmount = money.Round((base+b.TaxAmount+b.ServiceAmount)*in.CommissionPercent/100, decimals)
	}

	b.Total = money.Round(base+b.TaxAmount+b.ServiceAmount+b.CommissionAmount, decimals)
	return b, nil
}

// applyDiscount resolves the discount amount plus the provenance snapshot
// persisted with the order. A missing or inapplicable discount is zero, never
// an error.
func applyDiscount(in Input, subtotal float64, decimals int) (float64, DiscountMode, DiscountType, float64) {
	switch in.Discount.Mode {
	case DiscountFree:
		value := in.Discount.Value
		if value <= 0 {
			return 0, "", "", 0
		}
		if in.Rates.DiscountCapsEnabled && !in.Actor.IsElevated() {
			// Unprivileged actors cannot grant discretionary discounts.
			return 0, DiscountFree, in.Discount.Type, 0
		}
		if in.Discount.Type == DiscountPercent {
			cap := 100.0
			if in.Rates.DiscountCapsEnabled {
				cap = in.Actor.DiscountCapPercent()
			}
			if value > cap {
				value = cap
			}
			return money.Round(subtotal*value/100, decimals), DiscountFree, DiscountPercent, value
		}
		if value > subtotal {
			value = subtotal
		}
		return money.Round(value, decimals), DiscountFree, DiscountFixed, value

	case DiscountScheme:
		if in.Scheme == nil || !in.Scheme.Active {
			return 0, DiscountScheme, "", 0
		}
		value := in.Scheme.Value
		if value <= 0 {
			return 0, DiscountScheme, in.Scheme.Type, 0
		}
		if in.Scheme.Type == DiscountPercent {
			if value > 100 {
				value = 100
			}
			return money.Round(subtotal*value/100, decimals), DiscountScheme, DiscountPercent, value
		}
		if value > subtotal {
			value = subtotal
		}
		return money.Round(value, decimals), DiscountScheme, DiscountFixed, value
	}
	return 0, "", "", 0
}
