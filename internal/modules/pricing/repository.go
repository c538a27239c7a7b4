package pricing

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines data access for tenant billing configuration.
type Repository interface {
	// GetTenantRates retrieves the tenant's tax/service/precision settings.
	GetTenantRates(ctx context.Context, tenantID uuid.UUID) (TenantRates, error)

	// GetScheme retrieves a discount scheme owned by the tenant.
	GetScheme(ctx context.Context, tenantID uuid.UUID, schemeID string) (*Scheme, error)

	// GetAggregatorCommission retrieves the commission percent for a
	// tenant's delivery aggregator.
	GetAggregatorCommission(ctx context.Context, tenantID uuid.UUID, aggregatorID int64) (float64, error)
}
