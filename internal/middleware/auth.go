package middleware

import (
	"net/http"

	"campus-eats/internal/auth"
	"campus-eats/internal/logger"
	"campus-eats/internal/utils"

	"go.uber.org/zap"
)

// AuthMiddleware attaches the caller identity from a bearer token. Requests
// without a token pass through anonymously; a token that fails verification
// is rejected outright.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(tokenStr, secret)
			if err != nil {
				logger.FromCtx(r.Context()).Debug("rejecting bearer token", zap.Error(err))
				utils.WriteJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx := utils.SetUserContext(r.Context(), claims.UserID, claims.Email, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth mirrors the original "protect" guard.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			utils.WriteJSONError(w, http.StatusUnauthorized, "unauthorized", "Not authorized, no token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !utils.IsAdmin(r.Context()) {
			utils.WriteJSONError(w, http.StatusForbidden, "access_denied", "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
