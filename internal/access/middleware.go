package access

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/portal/internal/shared"
)

// Middleware enforces the visibility policy at the route level. The portal
// only mounts it when role-level route enforcement is enabled; by default
// routes are protected by the authentication guard alone and the policy only
// hides navigation entries.
type Middleware struct {
	Logger *slog.Logger
}

// RequireVisible rejects requests whose session role may not see res.
func (m Middleware) RequireVisible(res Resource) func(http.Handler) http.Handler {
	if !res.Valid() && m.Logger != nil {
		m.Logger.Error("access: route bound to unknown resource", slog.String("resource", string(res)))
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var role Role
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				role = ParseRole(sess.Identity().Role)
			}
			if !IsVisible(role, res) {
				if m.Logger != nil {
					m.Logger.Warn("access denied",
						slog.String("role", role.String()),
						slog.String("resource", string(res)),
						slog.String("path", r.URL.Path),
					)
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
