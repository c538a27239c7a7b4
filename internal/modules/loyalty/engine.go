package loyalty

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/mkandawire/servipos-backend/internal/money"
)

// PointsEarned is floor(subtotal * earnRate). Negative inputs earn nothing.
func PointsEarned(subtotal, earnRate float64) int64 {
	if subtotal <= 0 || earnRate <= 0 {
		return 0
	}
	return int64(math.Floor(subtotal * earnRate))
}

// CashbackPercentFor picks the highest ladder tier whose MinVisits the
// member's visit count satisfies. Zero when no tier qualifies.
func CashbackPercentFor(ladder []CashbackTier, visitCount int) float64 {
	var best float64
	bestVisits := -1
	for _, tier := range ladder {
		if visitCount >= tier.MinVisits && tier.MinVisits > bestVisits {
			best = tier.Percent
			bestVisits = tier.MinVisits
		}
	}
	return best
}

// AccrueForOrder computes what a member earns from one closed order under a
// program. The visit count used for ladder lookup is the member's count
// before this order. Returns nil when the order accrues nothing.
func AccrueForOrder(p *Program, m *Member, subtotal, total float64) *Accrual {
	if !p.Active || subtotal < p.MinOrderAmount {
		return nil
	}
	a := &Accrual{ProgramID: p.ID, ProgramName: p.Name, Type: p.Type}
	switch p.Type {
	case ProgramPoints:
		a.Points = PointsEarned(subtotal, p.EarnRate)
		if a.Points == 0 {
			return nil
		}
	case ProgramCashback:
		percent := CashbackPercentFor(p.Ladder, m.VisitCount)
		if percent <= 0 {
			return nil
		}
		a.Cashback = money.Round2(subtotal * percent / 100)
		if a.Cashback == 0 {
			return nil
		}
	case ProgramStamp:
		a.Stamps = 1
	default:
		return nil
	}
	return a
}

// EvaluateVoucher runs every redemption check and caps the discount at the
// voucher's maximum and the order total. It never returns an error: a failed
// check is an inapplicable voucher, not a failed checkout.
func EvaluateVoucher(v *Voucher, customerID *uuid.UUID, orderTotal float64, now time.Time) RedemptionResult {
	if v == nil {
		return RedemptionResult{Reason: "voucher_not_found"}
	}
	if !v.Active {
		return RedemptionResult{Reason: "voucher_inactive"}
	}
	if v.ExpiresAt != nil && now.After(*v.ExpiresAt) {
		return RedemptionResult{Reason: "voucher_expired"}
	}
	if v.UsesRemaining <= 0 {
		return RedemptionResult{Reason: "voucher_exhausted"}
	}
	if orderTotal < v.MinOrderAmount {
		return RedemptionResult{Reason: "below_min_order"}
	}
	if len(v.AllowedCustomerIDs) > 0 {
		if customerID == nil {
			return RedemptionResult{Reason: "customer_not_eligible"}
		}
		eligible := false
		for _, id := range v.AllowedCustomerIDs {
			if id == *customerID {
				eligible = true
				break
			}
		}
		if !eligible {
			return RedemptionResult{Reason: "customer_not_eligible"}
		}
	}

	var discount float64
	switch v.DiscountType {
	case DiscountPercent:
		discount = orderTotal * v.Value / 100
	case DiscountValue:
		discount = v.Value
	default:
		return RedemptionResult{Reason: "voucher_malformed"}
	}
	if v.MaxDiscountAmount > 0 && discount > v.MaxDiscountAmount {
		discount = v.MaxDiscountAmount
	}
	if discount > orderTotal {
		discount = orderTotal
	}
	return RedemptionResult{Discount: money.Round2(discount), Applicable: true}
}
