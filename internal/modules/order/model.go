package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkandawire/servipos-backend/internal/modules/pricing"
)

// Status represents the lifecycle state of an order.
type Status string

const (
	StatusOpen      Status = "open"
	StatusHeld      Status = "held"
	StatusSent      Status = "sent"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusServed    Status = "served"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
	StatusVoided    Status = "voided"
	StatusRefunded  Status = "refunded"
)

// Terminal reports whether the order can no longer be mutated (audit
// annotations and the closed→refunded transition excepted).
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusCancelled || s == StatusVoided || s == StatusRefunded
}

// PaymentStatus represents the settlement state of an order.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
	PaymentVoided PaymentStatus = "voided"
)

// validTransitions defines the allowed status state machine.
var validTransitions = map[Status][]Status{
	StatusOpen:      {StatusHeld, StatusSent, StatusClosed, StatusCancelled, StatusVoided},
	StatusHeld:      {StatusOpen, StatusSent, StatusClosed, StatusCancelled, StatusVoided},
	StatusSent:      {StatusPreparing, StatusClosed, StatusCancelled, StatusVoided},
	StatusPreparing: {StatusReady, StatusClosed, StatusCancelled},
	StatusReady:     {StatusServed, StatusClosed, StatusCancelled},
	StatusServed:    {StatusClosed, StatusCancelled},
	StatusClosed:    {StatusRefunded},
	StatusCancelled: {},
	StatusVoided:    {},
	StatusRefunded:  {},
}

// CanTransition returns true if the status transition is valid.
func CanTransition(current, next Status) bool {
	for _, s := range validTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// Line is a single ordered line. The product name and unit price are
// snapshots taken at order time; later catalog edits never reprice a sale.
type Line struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	UnitPrice   float64   `json:"unit_price"`
	Quantity    int       `json:"quantity"`
	Subtotal    float64   `json:"subtotal"`
	CreatedAt   time.Time `json:"created_at"`
}

// Order represents a sale transaction.
type Order struct {
	ID          uuid.UUID         `json:"id"`
	TenantID    uuid.UUID         `json:"tenant_id"`
	BranchID    uuid.UUID         `json:"branch_id"`
	CustomerID  *uuid.UUID        `json:"customer_id,omitempty"`
	TableID     *uuid.UUID        `json:"table_id,omitempty"`
	OrderNumber string            `json:"order_number"`
	Type        pricing.OrderType `json:"order_type"`
	Status      Status            `json:"status"`
	GuestCount  int               `json:"guest_count,omitempty"`

	Subtotal          float64 `json:"subtotal"`
	DiscountAmount    float64 `json:"discount_amount"`
	DiscountMode      string  `json:"discount_mode,omitempty"`
	DiscountType      string  `json:"discount_type,omitempty"`
	DiscountValue     float64 `json:"discount_value,omitempty"`
	TaxPercent        float64 `json:"tax_percent"`
	TaxAmount         float64 `json:"tax_amount"`
	ServicePercent    float64 `json:"service_percent"`
	ServiceAmount     float64 `json:"service_amount"`
	CommissionPercent float64 `json:"commission_percent"`
	CommissionAmount  float64 `json:"commission_amount"`
	Total             float64 `json:"total"`

	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentMethod string        `json:"payment_method,omitempty"`
	AggregatorID  int64         `json:"aggregator_id,omitempty"`

	// Kitchen state: which line ids have been fired to the kitchen and which
	// are held back. Typed columns, not a metadata blob.
	FiredLineIDs []uuid.UUID `json:"fired_line_ids"`
	HeldLineIDs  []uuid.UUID `json:"held_line_ids"`

	IdempotencyToken string     `json:"idempotency_token,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	Lines            []*Line    `json:"lines,omitempty"`
	CreatedBy        uuid.UUID  `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
}

// CreateOrderRequest is the payload for creating a new order.
type CreateOrderRequest struct {
	OrderType        string               `json:"order_type"`
	Lines            []pricing.Line       `json:"lines"`
	Discount         pricing.DiscountSpec `json:"discount"`
	GuestCount       int                  `json:"guest_count,omitempty"`
	TableID          string               `json:"table_id,omitempty"`
	CustomerID       string               `json:"customer_id,omitempty"`
	AggregatorID     int64                `json:"aggregator_id,omitempty"`
	Finalize         bool                 `json:"finalize,omitempty"` // fire all lines immediately
	IdempotencyToken string               `json:"idempotency_token,omitempty"`
	Notes            string               `json:"notes,omitempty"`
}

// UpdateStatusRequest is the payload for advancing an order's status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}
