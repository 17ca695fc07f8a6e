package middleware

import (
	"crypto/subtle"
	"net/http"

	"promptmart-admin/internal/auth"
	"promptmart-admin/internal/logger"
	"promptmart-admin/internal/utils"

	"go.uber.org/zap"
)

// AuthMiddleware attaches the caller to the request context. Requests without
// credentials pass through anonymously; a token that fails to parse is rejected.
// A matching X-Service-Auth header marks the request as internal.
func AuthMiddleware(secret []byte, internalKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if internalKey != "" {
				if key := r.Header.Get("X-Service-Auth"); key != "" &&
					subtle.ConstantTimeCompare([]byte(key), []byte(internalKey)) == 1 {
					ctx = utils.WithInternalRequest(ctx)
					ctx = logger.WithActor(ctx, "service")
				}
			}

			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			claims, err := auth.ParseToken(secret, tokenStr)
			if err != nil {
				logger.FromCtx(ctx).Warn("rejected access token", zap.Error(err))
				utils.WriteJSONError(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx = utils.SetUserContext(ctx, claims)
			ctx = logger.WithActor(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin lets through admins and internal services only.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if utils.IsInternalRequest(ctx) {
			next.ServeHTTP(w, r)
			return
		}

		claims, ok := utils.GetClaimsFromContext(ctx)
		if !ok || claims.UserID == "" {
			utils.WriteJSONError(w, "authentication required", http.StatusUnauthorized)
			return
		}
		if !claims.IsAdmin() {
			logger.FromCtx(ctx).Warn("non-admin denied",
				zap.String("user_id", claims.UserID),
				zap.String("email", claims.Email),
				zap.String("role", claims.Role),
			)
			utils.WriteJSONError(w, "admin access required", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
