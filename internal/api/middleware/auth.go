package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vantive/scansight/internal/api"
)

type contextKey string

const TenantIDKey contextKey = "tenant_id"

// AuthValidator resolves a bearer token to the tenant it belongs to.
type AuthValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

// BearerAuth authenticates the request and pins the resolved tenant ID on the
// context. Every partition-scoped handler reads the tenant from here, never
// from the request body.
func BearerAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			tenantID, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}

			r.Header.Set("X-Tenant-ID", tenantID)
			ctx := context.WithValue(r.Context(), TenantIDKey, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetTenantID returns the authenticated tenant ID from context.
func GetTenantID(ctx context.Context) string {
	tenantID, _ := ctx.Value(TenantIDKey).(string)
	return tenantID
}
