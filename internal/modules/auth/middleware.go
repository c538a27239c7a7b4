package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

type contextKey struct{}

// FromContext extracts the authenticated tenant scope from a request context.
func FromContext(ctx context.Context) (Context, bool) {
	ac, ok := ctx.Value(contextKey{}).(Context)
	return ac, ok
}

// WithContext returns a context carrying the given tenant scope. Used by
// tests and by internal hook fan-out.
func WithContext(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// RequireAuth validates the Bearer token and injects an auth.Context into the
// request. Requests without a valid tenant-scoped token never reach a handler.
func RequireAuth(jwtKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, `{"error":"missing bearer token","reason":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims,
				func(t *jwt.Token) (interface{}, error) {
					if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
					}
					return jwtKey, nil
				})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid token","reason":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			ac, err := claimsToContext(claims)
			if err != nil {
				http.Error(w, `{"error":"malformed token claims","reason":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), ac)))
		})
	}
}

func claimsToContext(claims *Claims) (Context, error) {
	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return Context{}, fmt.Errorf("invalid tenant_id claim: %w", err)
	}
	branchID, err := uuid.Parse(claims.BranchID)
	if err != nil {
		return Context{}, fmt.Errorf("invalid branch_id claim: %w", err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Context{}, fmt.Errorf("invalid subject claim: %w", err)
	}
	return Context{
		TenantID: tenantID,
		BranchID: branchID,
		UserID:   userID,
		Role:     Role(claims.Role),
	}, nil
}
