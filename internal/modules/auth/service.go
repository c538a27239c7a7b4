package auth

import (
	"context"
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// Service defines the interface for authentication-related business logic.
type Service interface {
	// Login verifies credentials and issues a signed tenant-scoped token.
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
}

type service struct {
	repo     Repository
	jwtKey   []byte
	tokenTTL time.Duration
}

// NewService creates a new auth service. The signing key is injected from
// configuration; it is never embedded in source.
func NewService(repo Repository, jwtKey []byte, tokenTTL time.Duration) Service {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &service{repo: repo, jwtKey: jwtKey, tokenTTL: tokenTTL}
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, errors.New("email and password are required")
	}

	staff, err := s.repo.GetStaffByEmail(ctx, req.Email)
	if err != nil {
		return nil, errors.New("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid credentials")
	}

	claims := &Claims{
		TenantID: staff.TenantID.String(),
		BranchID: staff.BranchID.String(),
		Role:     string(staff.Role),
		StandardClaims: jwt.StandardClaims{
			Subject:   staff.ID.String(),
			ExpiresAt: time.Now().Add(s.tokenTTL).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtKey)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{Token: signed, Staff: staff}, nil
}
