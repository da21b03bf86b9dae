package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	identityapp "github.com/voxcalls/backend/internal/identity/app"
	identitydomain "github.com/voxcalls/backend/internal/identity/domain"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	AuthenticatedUserContextKey = ContextKey("authenticatedUser")
)

// AuthenticatedUser holds the identity attached to the request after token
// validation.
type AuthenticatedUser struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Role     string
}

// UserFromContext returns the authenticated user set by AuthMiddleware.
func UserFromContext(ctx context.Context) (AuthenticatedUser, bool) {
	user, ok := ctx.Value(AuthenticatedUserContextKey).(AuthenticatedUser)
	return user, ok
}

// AuthMiddleware validates the bearer token and attaches the authenticated
// user to the request context.
func AuthMiddleware(identity *identityapp.Application, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(r.Context(), "Authorization header missing")
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.WarnContext(r.Context(), "Invalid Authorization header format")
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := identity.ParseToken(parts[1])
			if err != nil {
				logger.WarnContext(r.Context(), "Token validation failed", "error", err)
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			authUser := AuthenticatedUser{
				ID:       claims.UserID,
				TenantID: claims.TenantID,
				Role:     claims.Role,
			}

			ctx := context.WithValue(r.Context(), AuthenticatedUserContextKey, authUser)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose authenticated user does not hold at
// least the given role. AuthMiddleware must run first.
func RequireRole(role string, logger *slog.Logger) func(next http.Handler) http.Handler {
	rank := map[string]int{
		identitydomain.RoleUser:       1,
		identitydomain.RoleAdmin:      2,
		identitydomain.RoleSuperAdmin: 3,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authUser, ok := UserFromContext(r.Context())
			if !ok {
				logger.ErrorContext(r.Context(), "AuthenticatedUser not found in context. AuthMiddleware must run first.")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			if rank[authUser.Role] < rank[role] {
				logger.WarnContext(r.Context(), "Role check failed",
					"user_id", authUser.ID, "role", authUser.Role, "required_role", role)
				http.Error(w, "Forbidden: insufficient role", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
