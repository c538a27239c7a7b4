package loyalty

import (
	"context"

	"github.com/google/uuid"

	"github.com/mkandawire/servipos-backend/internal/modules/auth"
)

// Hook adapts the loyalty service to the settlement close-hook contract so
// rewards accrue when an order settles.
type Hook struct{ service Service }

func NewHook(service Service) *Hook { return &Hook{service: service} }

func (h *Hook) OrderClosed(ctx context.Context, ac auth.Context, orderID uuid.UUID) error {
	return h.service.ApplyOnClose(ctx, ac, orderID)
}
