package utils

import (
	"context"

	"promptmart-admin/internal/auth"
)

type contextKey string

const UserClaimsKey contextKey = "user_claims"

// SetUserContext stores verified token claims (called by middleware)
func SetUserContext(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, UserClaimsKey, claims)
}

// GetClaimsFromContext returns the caller's claims, if a token was presented.
func GetClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// GetUserIDFromContext retrieves userID safely
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	claims, ok := GetClaimsFromContext(ctx)
	if !ok || claims.UserID == "" {
		return "", false
	}
	return claims.UserID, true
}
