package auth

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

// Role represents a staff member's privilege level within a branch.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleCashier Role = "CASHIER"
	RoleWaiter  Role = "WAITER"
)

// Staff represents an employee able to sign in at a POS terminal.
type Staff struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	BranchID     uuid.UUID `json:"branch_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Claims is the JWT payload carried by every authenticated request.
type Claims struct {
	TenantID string `json:"tenant_id"`
	BranchID string `json:"branch_id"`
	Role     string `json:"role"`
	jwt.StandardClaims
}

// Context is the authenticated tenant scope passed explicitly into every
// service call. Cross-tenant access is impossible without a forged Context.
type Context struct {
	TenantID uuid.UUID
	BranchID uuid.UUID
	UserID   uuid.UUID
	Role     Role
}

// IsElevated reports whether the role may apply discretionary discounts.
func (c Context) IsElevated() bool {
	return c.Role == RoleAdmin || c.Role == RoleManager
}

// DiscountCapPercent is the largest percent discount the role may grant.
func (c Context) DiscountCapPercent() float64 {
	if c.Role == RoleAdmin {
		return 100
	}
	return 50
}

// LoginRequest is the payload for staff sign-in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the signed token and the staff profile.
type LoginResponse struct {
	Token string `json:"token"`
	Staff *Staff `json:"staff"`
}
