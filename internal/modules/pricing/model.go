package pricing

import (
	"time"

	"github.com/google/uuid"
)

// OrderType indicates how a sale is fulfilled.
type OrderType string

const (
	TypeDineIn   OrderType = "dine_in"
	TypeTakeaway OrderType = "takeaway"
	TypeDelivery OrderType = "delivery"
)

// Valid reports whether the order type is one of the known values.
func (t OrderType) Valid() bool {
	return t == TypeDineIn || t == TypeTakeaway || t == TypeDelivery
}

// DiscountMode indicates where a discount comes from.
type DiscountMode string

const (
	DiscountFree   DiscountMode = "free"   // discretionary, keyed in by staff
	DiscountScheme DiscountMode = "scheme" // configured tenant discount scheme
)

// DiscountType indicates how a discount value is interpreted.
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// DiscountSpec is the transient discount input to a totals computation. It is
// not persisted as its own entity; orders record only the resulting amount
// plus a provenance snapshot.
type DiscountSpec struct {
	Mode     DiscountMode `json:"mode,omitempty"`
	Type     DiscountType `json:"type,omitempty"`
	Value    float64      `json:"value,omitempty"`
	SchemeID string       `json:"scheme_id,omitempty"`
}

// Line is a single priced line in a totals computation.
type Line struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
}

// TenantRates holds the per-tenant billing configuration.
type TenantRates struct {
	TaxPercent          float64 `json:"tax_percent"`
	ServicePercent      float64 `json:"service_percent"`
	CurrencyDecimals    int     `json:"currency_decimals"` // 0-4
	DiscountCapsEnabled bool    `json:"discount_caps_enabled"`
}

// Scheme is a configured tenant discount scheme.
type Scheme struct {
	ID        uuid.UUID    `json:"id"`
	TenantID  uuid.UUID    `json:"tenant_id"`
	Name      string       `json:"name"`
	Type      DiscountType `json:"type"`
	Value     float64      `json:"value"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"created_at"`
}

// Aggregator is a third-party delivery platform charging commission.
type Aggregator struct {
	ID                int64     `json:"id"`
	TenantID          uuid.UUID `json:"tenant_id"`
	Name              string    `json:"name"`
	CommissionPercent float64   `json:"commission_percent"`
	Active            bool      `json:"active"`
}

// TotalsBreakdown carries every intermediate figure of a totals computation
// so receipts and audit rows can show the full arithmetic, not just the total.
type TotalsBreakdown struct {
	LineSubtotals     []float64    `json:"line_subtotals"`
	Subtotal          float64      `json:"subtotal"`
	DiscountAmount    float64      `json:"discount_amount"`
	DiscountMode      DiscountMode `json:"discount_mode,omitempty"`
	DiscountType      DiscountType `json:"discount_type,omitempty"`
	DiscountValue     float64      `json:"discount_value,omitempty"`
	Base              float64      `json:"base"`
	TaxPercent        float64      `json:"tax_percent"`
	TaxAmount         float64      `json:"tax_amount"`
	ServicePercent    float64      `json:"service_percent"`
	ServiceAmount     float64      `json:"service_amount"`
	CommissionPercent float64      `json:"commission_percent"`
	CommissionAmount  float64      `json:"commission_amount"`
	Total             float64      `json:"total"`
}

// QuoteRequest is the payload for a totals computation through the service.
type QuoteRequest struct {
	OrderType    OrderType    `json:"order_type"`
	Lines        []Line       `json:"lines"`
	Discount     DiscountSpec `json:"discount"`
	GuestCount   int          `json:"guest_count,omitempty"`
	AggregatorID int64        `json:"aggregator_id,omitempty"`
}
