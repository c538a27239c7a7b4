package loyalty

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPointsEarned(t *testing.T) {
	// points always floor, never round up
	assert.Equal(t, int64(35), PointsEarned(35.00, 1.0))
	assert.Equal(t, int64(17), PointsEarned(35.00, 0.5))
	assert.Equal(t, int64(2), PointsEarned(250.00, 0.01))
	assert.Equal(t, int64(52), PointsEarned(35.00, 1.5))
	assert.Equal(t, int64(0), PointsEarned(0.99, 1.0))
	assert.Equal(t, int64(0), PointsEarned(0, 1.0))
	assert.Equal(t, int64(0), PointsEarned(100, 0))
	assert.Equal(t, int64(0), PointsEarned(-5, 1.0))
}

func TestCashbackPercentFor(t *testing.T) {
	ladder := []CashbackTier{
		{MinVisits: 0, Percent: 1},
		{MinVisits: 10, Percent: 3},
		{MinVisits: 25, Percent: 5},
	}
	assert.Equal(t, 1.0, CashbackPercentFor(ladder, 0))
	assert.Equal(t, 1.0, CashbackPercentFor(ladder, 9))
	assert.Equal(t, 3.0, CashbackPercentFor(ladder, 10))
	assert.Equal(t, 5.0, CashbackPercentFor(ladder, 25))
	assert.Equal(t, 5.0, CashbackPercentFor(ladder, 200))
	assert.Equal(t, 0.0, CashbackPercentFor(nil, 50))
}

func TestAccrueForOrder(t *testing.T) {
	member := &Member{VisitCount: 12}

	points := &Program{ID: uuid.New(), Name: "Points", Type: ProgramPoints, Active: true, EarnRate: 1.0}
	a := AccrueForOrder(points, member, 35.00, 40.25)
	assert.Equal(t, int64(35), a.Points)

	cashback := &Program{ID: uuid.New(), Name: "Cashback", Type: ProgramCashback, Active: true,
		Ladder: []CashbackTier{{MinVisits: 0, Percent: 1}, {MinVisits: 10, Percent: 3}}}
	a = AccrueForOrder(cashback, member, 35.00, 40.25)
	assert.Equal(t, 1.05, a.Cashback) // 3% tier of the 35.00 subtotal

	stamp := &Program{ID: uuid.New(), Name: "Stamps", Type: ProgramStamp, Active: true}
	a = AccrueForOrder(stamp, member, 35.00, 40.25)
	assert.Equal(t, 1, a.Stamps)

	// inactive programs and below-minimum orders accrue nothing
	inactive := &Program{Type: ProgramPoints, EarnRate: 1.0}
	assert.Nil(t, AccrueForOrder(inactive, member, 35.00, 40.25))

	minOrder := &Program{Type: ProgramStamp, Active: true, MinOrderAmount: 50.00}
	assert.Nil(t, AccrueForOrder(minOrder, member, 35.00, 40.25))
}

func TestEvaluateVoucher(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)
	customer := uuid.New()

	base := Voucher{
		Code:          "VCH-TEST",
		DiscountType:  DiscountValue,
		Value:         5.00,
		UsesRemaining: 1,
		Active:        true,
		ExpiresAt:     &future,
	}

	t.Run("applicable fixed", func(t *testing.T) {
		v := base
		r := EvaluateVoucher(&v, &customer, 40.00, now)
		assert.True(t, r.Applicable)
		assert.Equal(t, 5.00, r.Discount)
	})

	t.Run("percent capped at max discount", func(t *testing.T) {
		v := base
		v.DiscountType = DiscountPercent
		v.Value = 50
		v.MaxDiscountAmount = 10.00
		r := EvaluateVoucher(&v, &customer, 100.00, now)
		assert.True(t, r.Applicable)
		assert.Equal(t, 10.00, r.Discount)
	})

	t.Run("fixed capped at order total", func(t *testing.T) {
		v := base
		v.Value = 50.00
		r := EvaluateVoucher(&v, &customer, 12.00, now)
		assert.True(t, r.Applicable)
		assert.Equal(t, 12.00, r.Discount)
	})

	t.Run("failed checks never error", func(t *testing.T) {
		cases := []struct {
			name   string
			mutate func(*Voucher)
			reason string
		}{
			{"inactive", func(v *Voucher) { v.Active = false }, "voucher_inactive"},
			{"expired", func(v *Voucher) { v.ExpiresAt = &past }, "voucher_expired"},
			{"exhausted", func(v *Voucher) { v.UsesRemaining = 0 }, "voucher_exhausted"},
			{"below min order", func(v *Voucher) { v.MinOrderAmount = 100.00 }, "below_min_order"},
			{"wrong customer", func(v *Voucher) { v.AllowedCustomerIDs = []uuid.UUID{uuid.New()} }, "customer_not_eligible"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				v := base
				tc.mutate(&v)
				r := EvaluateVoucher(&v, &customer, 40.00, now)
				assert.False(t, r.Applicable)
				assert.Equal(t, 0.00, r.Discount)
				assert.Equal(t, tc.reason, r.Reason)
			})
		}
	})

	t.Run("restricted voucher honors allowed customer", func(t *testing.T) {
		v := base
		v.AllowedCustomerIDs = []uuid.UUID{customer}
		r := EvaluateVoucher(&v, &customer, 40.00, now)
		assert.True(t, r.Applicable)

		r = EvaluateVoucher(&v, nil, 40.00, now)
		assert.False(t, r.Applicable)
		assert.Equal(t, "customer_not_eligible", r.Reason)
	})

	t.Run("missing voucher", func(t *testing.T) {
		r := EvaluateVoucher(nil, &customer, 40.00, now)
		assert.False(t, r.Applicable)
		assert.Equal(t, "voucher_not_found", r.Reason)
	})
}
