package middleware

import (
	"net/http"
	"slices"

	"github.com/good-yellow-bee/projtrack/internal/models"
)

// CanEdit reports whether p may modify existing projects.
func (p Principal) CanEdit() bool { return p.Role.CanEdit() }

// authorize wraps next with a check on the request principal. Requests without
// a principal are always refused.
func authorize(allow func(Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r.Context())
			if !ok || p.Role == "" || !allow(p) {
				jsonForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole admits the listed roles. Admins are always admitted.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return authorize(func(p Principal) bool {
		return p.Role == models.RoleAdmin || slices.Contains(roles, p.Role)
	})
}

// RequireEditor admits admins and managers.
var RequireEditor = authorize(Principal.CanEdit)
