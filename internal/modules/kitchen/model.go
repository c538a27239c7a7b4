package kitchen

import (
	"github.com/google/uuid"

	"github.com/mkandawire/servipos-backend/internal/modules/order"
)

// State is the kitchen view of an order: which lines have been fired to the
// kitchen and which are held back at the table.
type State struct {
	OrderID      uuid.UUID    `json:"order_id"`
	Status       order.Status `json:"status"`
	FiredLineIDs []uuid.UUID  `json:"fired_line_ids"`
	HeldLineIDs  []uuid.UUID  `json:"held_line_ids"`
}

// LineRef is the minimal line projection the kitchen operations need.
type LineRef struct {
	ID        uuid.UUID
	ProductID int64
}

// FireRequest selects lines to fire. An empty product list means all lines.
type FireRequest struct {
	ProductIDs []int64 `json:"product_ids,omitempty"`
}

// HoldRequest selects lines to hold. An empty product list means all lines.
type HoldRequest struct {
	ProductIDs []int64 `json:"product_ids,omitempty"`
}
