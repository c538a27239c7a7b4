package auth

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL staff repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetStaffByEmail(ctx context.Context, email string) (*Staff, error) {
	return r.scanStaff(r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, branch_id, email, password_hash, first_name, last_name, role, active, created_at, updated_at
		FROM staff
		WHERE email = $1 AND active = TRUE`, email))
}

func (r *postgresRepository) GetStaffByID(ctx context.Context, id string) (*Staff, error) {
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	return r.scanStaff(r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, branch_id, email, password_hash, first_name, last_name, role, active, created_at, updated_at
		FROM staff
		WHERE id = $1`, parsedID))
}

func (r *postgresRepository) scanStaff(row *sql.Row) (*Staff, error) {
	s := &Staff{}
	err := row.Scan(
		&s.ID, &s.TenantID, &s.BranchID, &s.Email, &s.PasswordHash,
		&s.FirstName, &s.LastName, &s.Role, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}
