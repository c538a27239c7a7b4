package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkandawire/servipos-backend/internal/modules/auth"
)

func baseRates() TenantRates {
	return TenantRates{TaxPercent: 10, ServicePercent: 5, CurrencyDecimals: 2, DiscountCapsEnabled: true}
}

func admin() auth.Context {
	return auth.Context{TenantID: uuid.New(), BranchID: uuid.New(), UserID: uuid.New(), Role: auth.RoleAdmin}
}

func cashier() auth.Context {
	return auth.Context{TenantID: uuid.New(), BranchID: uuid.New(), UserID: uuid.New(), Role: auth.RoleCashier}
}

func TestComputeTotalsDineIn(t *testing.T) {
	b, err := ComputeTotals(Input{
		Lines: []Line{
			{ProductID: 1, ProductName: "Burger", UnitPrice: 10.00, Quantity: 2},
			{ProductID: 2, ProductName: "Fries", UnitPrice: 5.00, Quantity: 3},
		},
		OrderType:  TypeDineIn,
		GuestCount: 2,
		Actor:      cashier(),
		Rates:      baseRates(),
	})
	require.NoError(t, err)
	assert.Equal(t, 35.00, b.Subtotal)
	assert.Equal(t, 0.00, b.DiscountAmount)
	assert.Equal(t, 35.00, b.Base)
	assert.Equal(t, 1.75, b.ServiceAmount)
	assert.Equal(t, 3.50, b.TaxAmount)
	assert.Equal(t, 0.00, b.CommissionAmount)
	assert.Equal(t, 40.25, b.Total)
}

func TestComputeTotalsValidation(t *testing.T) {
	rates := baseRates()

	_, err := ComputeTotals(Input{OrderType: TypeTakeaway, Actor: cashier(), Rates: rates})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_lines")

	_, err = ComputeTotals(Input{
		Lines:     []Line{{ProductID: 1, ProductName: "Tea", UnitPrice: 2, Quantity: 1}},
		OrderType: TypeDineIn,
		Actor:     cashier(),
		Rates:     rates,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "guests_required")

	_, err = ComputeTotals(Input{
		Lines:     []Line{{ProductID: 1, ProductName: "Water", UnitPrice: 0, Quantity: 2}},
		OrderType: TypeTakeaway,
		Actor:     cashier(),
		Rates:     rates,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subtotal_zero")

	_, err = ComputeTotals(Input{
		Lines:     []Line{{ProductID: 0, ProductName: "Ghost", UnitPrice: 1, Quantity: 1}},
		OrderType: TypeTakeaway,
		Actor:     cashier(),
		Rates:     rates,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad_line")
}

func TestComputeTotalsQuantityDefaultsToOne(t *testing.T) {
	b, err := ComputeTotals(Input{
		Lines:     []Line{{ProductID: 1, ProductName: "Coffee", UnitPrice: 3.50}},
		OrderType: TypeTakeaway,
		Actor:     cashier(),
		Rates:     baseRates(),
	})
	require.NoError(t, err)
	assert.Equal(t, 3.50, b.Subtotal)
}

func TestPerLineRoundingBeforeSummation(t *testing.T) {
	// Two lines of 3 x 1.115 round to 3.35 each before summing; a single
	// end-of-calculation round over 6.69 would give the same figure, but the
	// receipt shows 3.35 + 3.34 != line math unless each line rounds first.
	b, err := ComputeTotals(Input{
		Lines: []Line{
			{ProductID: 1, ProductName: "A", UnitPrice: 1.115, Quantity: 3},
			{ProductID: 2, ProductName: "B", UnitPrice: 1.115, Quantity: 3},
		},
		OrderType: TypeTakeaway,
		Actor:     cashier(),
		Rates:     TenantRates{TaxPercent: 0, CurrencyDecimals: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 6.70, b.Subtotal) // 3.35 + 3.35, not round(6.69)
}

func TestFreeDiscountAdminCap(t *testing.T) {
	b, err := ComputeTotals(Input{
		Lines:     []Line{{ProductID: 1, ProductName: "Cake", UnitPrice: 100.00, Quantity: 1}},
		OrderType: TypeTakeaway,
		Discount:  DiscountSpec{Mode: DiscountFree, Type: DiscountPercent, Value: 20},
		Actor:     admin(),
		Rates:     baseRates(),
	})
	require.NoError(t, err)
	assert.Equal(t, 20.00, b.DiscountAmount)
	assert.Equal(t, 80.00, b.Base)
}

func TestFreeDiscountCashierForcedToZero(t *testing.T) {
	b, err := ComputeTotals(Input{
		Lines:     []Line{{ProductID: 1, ProductName: "Cake", UnitPrice: 100.00, Quantity: 1}},
		OrderType: TypeTakeaway,
		Discount:  DiscountSpec{Mode: DiscountFree, Type: DiscountPercent, Value: 20},
		Actor:     cashier(),
		Rates:     baseRates(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.00, b.DiscountAmount)
}

func TestFreeDiscountManagerClampedAt50(t *testing.T) {
	ac := cashier()
	ac.Role = auth.RoleManager
	b, err := ComputeTotals(Input{
		Lines:     []Line{{ProductID: 1, ProductName: "Cake", UnitPrice: 100.00, Quantity: 1}},
		OrderType: TypeTakeaway,
		Discount:  DiscountSpec{Mode: DiscountFree, Type: DiscountPercent, Value: 80},
		Actor:     ac,
		Rates:     baseRates(),
	})
	require.NoError(t, err)
	assert.Equal(t, 50.00, b.DiscountAmount)
	assert.Equal(t, 50.00, b.DiscountValue)
}

func TestFixedDiscountClampedToSubtotal(t *testing.T) {
	b, err := ComputeTotals(Input{
		Lines:     []Line{{ProductID: 1, ProductName: "Tea", UnitPrice: 10.00, Quantity: 1}},
		OrderType: TypeTakeaway,
		Discount:  DiscountSpec{Mode: DiscountFree, Type: DiscountFixed, Value: 25},
		Actor:     admin(),
		Rates:     baseRates(),
	})
	require.NoError(t, err)
	assert.Equal(t, 10.00, b.DiscountAmount)
	assert.Equal(t, 0.00, b.Base)
	// Total stays >= 0 even when the discount swallows the subtotal.
	assert.GreaterOrEqual(t, b.Total, 0.00)
}

func TestSchemeDiscount(t *testing.T) {
	ac := cashier()
	scheme := &Scheme{ID: uuid.New(), TenantID: ac.TenantID, Name: "Happy Hour", Type: DiscountPercent, Value: 15, Active: true}
	b, err := ComputeTotals(Input{
		Lines:     []Line{{ProductID: 1, ProductName: "Pizza", UnitPrice: 40.00, Quantity: 1}},
		OrderType: TypeTakeaway,
		Discount:  DiscountSpec{Mode: DiscountScheme, SchemeID: scheme.ID.String()},
		Scheme:    scheme,
		Actor:     ac,
		Rates:     baseRates(),
	})
	require.NoError(t, err)
	assert.Equal(t, 6.00, b.DiscountAmount)
	assert.Equal(t, DiscountScheme, b.DiscountMode)
}

func TestInactiveSchemeYieldsZeroDiscount(t *testing.T) {
	ac := cashier()
	scheme := &Scheme{ID: uuid.New(), TenantID: ac.TenantID, Type: DiscountPercent, Value: 15, Active: false}
	b, err := ComputeTotals(Input{
		Lines:     []Line{{ProductID: 1, ProductName: "Pizza", UnitPrice: 40.00, Quantity: 1}},
		OrderType: TypeTakeaway,
		Discount:  DiscountSpec{Mode: DiscountScheme, SchemeID: scheme.ID.String()},
		Scheme:    scheme,
		Actor:     ac,
		Rates:     baseRates(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.00, b.DiscountAmount)
}

func TestServiceChargeOnlyForDineIn(t *testing.T) {
	for _, typ := range []OrderType{TypeTakeaway, TypeDelivery} {
		b, err := ComputeTotals(Input{
			Lines:     []Line{{ProductID: 1, ProductName: "Wrap", UnitPrice: 20.00, Quantity: 1}},
			OrderType: typ,
			Actor:     cashier(),
			Rates:     baseRates(),
		})
		require.NoError(t, err)
		assert.Equal(t, 0.00, b.ServiceAmount, "order type %s", typ)
		assert.Equal(t, 2.00, b.TaxAmount, "tax applies regardless of order type")
	}
}

func TestDeliveryCommission(t *testing.T) {
	b, err := ComputeTotals(Input{
		Lines:             []Line{{ProductID: 1, ProductName: "Combo", UnitPrice: 100.00, Quantity: 1}},
		OrderType:         TypeDelivery,
		CommissionPercent: 20,
		Actor:             cashier(),
		Rates:             baseRates(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.00, b.ServiceAmount)
	assert.Equal(t, 10.00, b.TaxAmount)
	// commission on base + tax + service = 110.00
	assert.Equal(t, 22.00, b.CommissionAmount)
	assert.Equal(t, 132.00, b.Total)
}

func TestNoCommissionWithoutAggregator(t *testing.T) {
	b, err := ComputeTotals(Input{
		Lines:     []Line{{ProductID: 1, ProductName: "Combo", UnitPrice: 100.00, Quantity: 1}},
		OrderType: TypeDelivery,
		Actor:     cashier(),
		Rates:     baseRates(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.00, b.CommissionAmount)
}

func TestZeroDecimalCurrency(t *testing.T) {
	b, err := ComputeTotals(Input{
		Lines:      []Line{{ProductID: 1, ProductName: "Bowl", UnitPrice: 1250, Quantity: 1}},
		OrderType:  TypeDineIn,
		GuestCount: 1,
		Actor:      cashier(),
		Rates:      TenantRates{TaxPercent: 11, ServicePercent: 5, CurrencyDecimals: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 1250.00, b.Subtotal)
	assert.Equal(t, 63.00, b.ServiceAmount)  // round(62.5)
	assert.Equal(t, 138.00, b.TaxAmount)     // round(137.5)
	assert.Equal(t, 1451.00, b.Total)
}
