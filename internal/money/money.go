// Package money holds the shared monetary rounding helpers. Tenants configure
// their currency precision (0-4 decimals); all engine arithmetic rounds through
// shopspring/decimal so half-away-from-zero rounding is not disturbed by float
// dust.
package money

import "github.com/shopspring/decimal"

// Round rounds v half away from zero at the given number of decimal places.
func Round(v float64, decimals int) float64 {
	if decimals < 0 {
		decimals = 0
	}
	if decimals > 4 {
		decimals = 4
	}
	return decimal.NewFromFloat(v).Round(int32(decimals)).InexactFloat64()
}

// Round2 rounds to 2 decimal places, the precision used for tender amounts.
func Round2(v float64) float64 {
	return Round(v, 2)
}
