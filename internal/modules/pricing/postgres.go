package pricing

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) GetTenantRates(ctx context.Context, tenantID uuid.UUID) (TenantRates, error) {
	var rates TenantRates
	err := r.db.QueryRowContext(ctx, `
		SELECT tax_percent, service_percent, currency_decimals, discount_caps_enabled
		FROM tenant_settings WHERE tenant_id=$1`, tenantID).
		Scan(&rates.TaxPercent, &rates.ServicePercent, &rates.CurrencyDecimals, &rates.DiscountCapsEnabled)
	if err != nil {
		return TenantRates{}, fmt.Errorf("load tenant rates: %w", err)
	}
	return rates, nil
}

func (r *postgresRepo) GetScheme(ctx context.Context, tenantID uuid.UUID, schemeID string) (*Scheme, error) {
	sid, err := uuid.Parse(schemeID)
	if err != nil {
		return nil, err
	}
	s := &Scheme{}
	err = r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, type, value, active, created_at
		FROM discount_schemes WHERE id=$1 AND tenant_id=$2`, sid, tenantID).
		Scan(&s.ID, &s.TenantID, &s.Name, &s.Type, &s.Value, &s.Active, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresRepo) GetAggregatorCommission(ctx context.Context, tenantID uuid.UUID, aggregatorID int64) (float64, error) {
	var percent float64
	err := r.db.QueryRowContext(ctx, `
		SELECT commission_percent FROM aggregators
		WHERE id=$1 AND tenant_id=$2 AND active=TRUE`, aggregatorID, tenantID).
		Scan(&percent)
	if err != nil {
		return 0, err
	}
	return percent, nil
}
