package middleware

import (
	"context"
	"net/http"

	"github.com/medira/clinic-server/internal/httputil"
	"github.com/medira/clinic-server/pkg/auth"
	"github.com/medira/clinic-server/pkg/domain"
)

type contextKey string

// PrincipalKey is the context key for the authenticated principal.
const PrincipalKey contextKey = "principal"

// Authenticate creates middleware that resolves the session cookie into
// a principal constrained to the given roles. Passing no roles accepts
// any authenticated user. Every denial is a bare 401; the reason is not
// exposed to the client.
func Authenticate(gate *auth.Gate, roles ...domain.Role) func(http.Handler) http.Handler {
	allowed := domain.AnyRole
	if len(roles) > 0 {
		allowed = domain.Roles(roles...)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _ := httputil.GetSessionToken(r)

			principal, ok := gate.Resolve(r.Context(), token, allowed)
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
func GetPrincipal(ctx context.Context) (*domain.Principal, bool) {
	principal, ok := ctx.Value(PrincipalKey).(*domain.Principal)
	return principal, ok
}
