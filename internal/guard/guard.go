// Package guard decides whether a request may reach a protected view and
// recovers from credentials the API no longer accepts.
package guard

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/odyssey-erp/portal/internal/apiclient"
	"github.com/odyssey-erp/portal/internal/observability"
	"github.com/odyssey-erp/portal/internal/platform/httpx"
	"github.com/odyssey-erp/portal/internal/shared"
)

// SignInPath is the default sign-in view.
const SignInPath = "/auth/login"

// State is the authentication state of a session.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Decision is the outcome of a guard check.
type Decision int

const (
	Redirect Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "redirect"
}

// StateOf reports the authentication state held by store. A missing store, a
// partial identity or a store that panics while being read all count as
// Unauthenticated.
func StateOf(store shared.IdentityStore) (state State) {
	defer func() {
		if recover() != nil {
			state = Unauthenticated
		}
	}()
	if store == nil {
		return Unauthenticated
	}
	if store.Identity().Authenticated() {
		return Authenticated
	}
	return Unauthenticated
}

// Check decides whether a protected view may render. It only asks whether
// anyone is signed in; role filtering belongs to the access policy.
func Check(store shared.IdentityStore) Decision {
	if StateOf(store) == Authenticated {
		return Allow
	}
	return Redirect
}

// Guard protects routes and handles authentication rejections.
type Guard struct {
	Logger  *slog.Logger
	Metrics *observability.Metrics
	// SignIn overrides SignInPath.
	SignIn string
}

// Protect redirects unauthenticated requests to the sign-in view.
func (g *Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Check(storeFrom(r)) == Allow {
			next.ServeHTTP(w, r)
			return
		}
		g.Metrics.GuardRedirect()
		if httpx.WantsJSON(r) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
			return
		}
		http.Redirect(w, r, g.signInURL(r), http.StatusSeeOther)
	})
}

// Reject clears the session after the API refused its credential and sends
// the user to sign in. The operation that triggered it is dropped.
func (g *Guard) Reject(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if g.Logger != nil {
			g.Logger.Info("session credential rejected",
				slog.String("user_id", sess.Identity().UserID),
				slog.String("path", r.URL.Path),
			)
		}
		sess.ClearIdentity()
		sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: "Your session has expired, please sign in again."})
	}
	g.Metrics.SessionExpired()
	if httpx.WantsJSON(r) {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session expired")
		return
	}
	http.Redirect(w, r, g.signInPath(), http.StatusSeeOther)
}

// Handle calls Reject and returns true when err is an authentication
// rejection. Other errors are left to the caller.
func (g *Guard) Handle(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil || !errors.Is(err, apiclient.ErrUnauthenticated) {
		return false
	}
	g.Reject(w, r)
	return true
}

func (g *Guard) signInPath() string {
	if g.SignIn != "" {
		return g.SignIn
	}
	return SignInPath
}

func (g *Guard) signInURL(r *http.Request) string {
	if r.Method != http.MethodGet {
		return g.signInPath()
	}
	return g.signInPath() + "?next=" + url.QueryEscape(r.URL.RequestURI())
}

// storeFrom avoids handing a typed nil to StateOf.
func storeFrom(r *http.Request) shared.IdentityStore {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		return sess
	}
	return nil
}

// SafeNext returns next when it is a local path, fallback otherwise.
func SafeNext(next, fallback string) string {
	if next == "" || next[0] != '/' || len(next) > 1 && (next[1] == '/' || next[1] == '\\') {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}
