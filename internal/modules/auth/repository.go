package auth

import "context"

// Repository defines data access for staff accounts.
type Repository interface {
	// GetStaffByEmail retrieves an active staff account by email.
	GetStaffByEmail(ctx context.Context, email string) (*Staff, error)

	// GetStaffByID retrieves a staff account by UUID.
	GetStaffByID(ctx context.Context, id string) (*Staff, error)
}
