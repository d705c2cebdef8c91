package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/portal/internal/access"
	"github.com/odyssey-erp/portal/internal/apiclient"
	"github.com/odyssey-erp/portal/internal/auth"
	"github.com/odyssey-erp/portal/internal/dashboard"
	"github.com/odyssey-erp/portal/internal/guard"
	"github.com/odyssey-erp/portal/internal/nav"
	"github.com/odyssey-erp/portal/internal/observability"
	"github.com/odyssey-erp/portal/internal/resources"
	"github.com/odyssey-erp/portal/internal/shared"
	"github.com/odyssey-erp/portal/internal/view"
	"github.com/odyssey-erp/portal/jobs"
	_ "github.com/odyssey-erp/portal/testing"
)

type emptyAPI struct{}

func (emptyAPI) List(context.Context, shared.Identity, access.Resource) ([]apiclient.Record, error) {
	return nil, nil
}

func (emptyAPI) Get(_ context.Context, _ shared.Identity, _ access.Resource, id string) (apiclient.Record, error) {
	return apiclient.Record{"id": id}, nil
}

func (emptyAPI) Create(_ context.Context, _ shared.Identity, _ access.Resource, rec apiclient.Record) (apiclient.Record, error) {
	return rec, nil
}

func (emptyAPI) Update(_ context.Context, _ shared.Identity, _ access.Resource, rec apiclient.Record) (apiclient.Record, error) {
	return rec, nil
}

func (emptyAPI) Delete(context.Context, shared.Identity, access.Resource, string) error { return nil }
func (emptyAPI) ApproveForm(context.Context, shared.Identity, string) error               { return nil }
func (emptyAPI) RejectForm(context.Context, shared.Identity, string) error                { return nil }

func (emptyAPI) Login(context.Context, string, string) (shared.Identity, error) {
	return shared.Identity{}, shared.ErrInvalidCredentials
}

func (emptyAPI) Register(context.Context, apiclient.RegisterRequest) (shared.Identity, error) {
	return shared.Identity{}, shared.ErrInvalidCredentials
}

type portal struct {
	handler  http.Handler
	sessions *shared.SessionManager
	csrf     *shared.CSRFManager
}

func newPortal(t *testing.T, enforce bool) *portal {
	t.Helper()
	mr := miniredis.RunT(t)
	sessions := shared.NewSessionManager(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "portal_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")
	engine, err := view.NewEngine()
	require.NoError(t, err)
	renderer := &view.Renderer{Engine: engine, CSRF: csrf}
	metrics := observability.NewMetrics()
	g := &guard.Guard{Metrics: metrics}

	var handlers []*resources.Handler
	for _, e := range nav.All() {
		if e.Resource == access.ResourceDashboard {
			continue
		}
		h, err := resources.NewHandler(nil, emptyAPI{}, renderer, g, e.Resource)
		require.NoError(t, err)
		handlers = append(handlers, h)
	}

	cfg := &Config{AppRequestTimeout: 5 * time.Second, RateLimitPerMinute: 100000, EnforceRoleRoutes: enforce}
	router := NewRouter(RouterParams{
		Config:           cfg,
		SessionManager:   sessions,
		CSRFManager:      csrf,
		Guard:            g,
		AuthHandler:      auth.NewHandler(nil, auth.NewService(emptyAPI{}, nil), renderer, sessions, csrf, metrics),
		DashboardHandler: dashboard.NewHandler(nil, emptyAPI{}, renderer, g),
		ResourceHandlers: handlers,
		JobHandler:       jobs.NewHandler(nil, nil),
		Metrics:          metrics,
	})
	return &portal{handler: router, sessions: sessions, csrf: csrf}
}

// signIn stores a session for role and returns its cookie and CSRF token.
func (p *portal) signIn(t *testing.T, role string) (*http.Cookie, string) {
	t.Helper()
	sess, err := p.sessions.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, sess.SaveIdentity(shared.Identity{UserID: "u", FullName: "Tester", Role: role, Token: "tok", CompanyID: "c-1"}))
	token, err := p.csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	require.NoError(t, p.sessions.Commit(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), sess))
	cookie, err := p.sessions.EncodeCookie(sess)
	require.NoError(t, err)
	return cookie, token
}

func (p *portal) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	p.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	p := newPortal(t, false)
	rec := p.get("/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAnonymousIsRedirectedFromEveryProtectedRoute(t *testing.T) {
	p := newPortal(t, false)
	for _, e := range nav.All() {
		rec := p.get(e.Route, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code, e.Route)
		assert.Equal(t, "/auth/login?next="+url.QueryEscape(e.Route), rec.Header().Get("Location"), e.Route)
	}
	assert.Equal(t, http.StatusSeeOther, p.get("/", nil).Code)
}

func TestMenuRoutesAreServedForEveryRole(t *testing.T) {
	p := newPortal(t, true)
	for _, role := range access.Roles() {
		if role == access.RoleDefault {
			continue
		}
		cookie, _ := p.signIn(t, string(role))
		for _, e := range nav.BuildMenu(role) {
			rec := p.get(e.Route, cookie)
			assert.Equal(t, http.StatusOK, rec.Code, "role=%s route=%s", role, e.Route)
			assert.Contains(t, rec.Body.String(), `<li class="active"><a href="`+e.Route+`">`, "role=%s route=%s", role, e.Route)
		}
	}
}

func TestHiddenRoutes(t *testing.T) {
	for _, enforce := range []bool{false, true} {
		p := newPortal(t, enforce)
		cookie, _ := p.signIn(t, "branchmanager")
		for _, e := range nav.All() {
			if access.IsVisible(access.RoleBranchManager, e.Resource) {
				continue
			}
			rec := p.get(e.Route, cookie)
			want := http.StatusOK
			if enforce {
				want = http.StatusForbidden
			}
			assert.Equal(t, want, rec.Code, "enforce=%v route=%s", enforce, e.Route)
		}
	}
}

func TestRootRedirectsToDashboard(t *testing.T) {
	p := newPortal(t, false)
	cookie, _ := p.signIn(t, "admin")
	rec := p.get("/", cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestSessionAPI(t *testing.T) {
	p := newPortal(t, false)

	rec := p.get("/api/session", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookie, _ := p.signIn(t, "CompanyManager")
	rec = p.get("/api/session", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "tok")

	var body sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "companymanager", body.Role)
	assert.Equal(t, "c-1", body.CompanyID)
	var routes []string
	for _, m := range body.Menu {
		routes = append(routes, m.Route)
	}
	assert.Equal(t, []string{"/dashboard", "/employees", "/forms", "/branches", "/members"}, routes)
}

func TestCSRFRequiredForUnsafeMethods(t *testing.T) {
	p := newPortal(t, false)
	cookie, token := p.signIn(t, "admin")

	form := url.Values{"name": {"North"}}
	req := httptest.NewRequest(http.MethodPost, "/branches", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	p.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	form.Set("csrf_token", token)
	req = httptest.NewRequest(http.MethodPost, "/branches", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	p.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/branches", rec.Header().Get("Location"))
}

func TestLogoutEndsSession(t *testing.T) {
	p := newPortal(t, false)
	cookie, token := p.signIn(t, "admin")

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set(shared.CSRFHeader, token)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	p.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	assert.Equal(t, http.StatusSeeOther, p.get("/dashboard", cookie).Code)
}

func TestSecurityHeadersAndStatic(t *testing.T) {
	p := newPortal(t, false)
	rec := p.get("/static/css/app.css", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestJobsHealthAndMetrics(t *testing.T) {
	p := newPortal(t, false)
	assert.Equal(t, http.StatusOK, p.get("/jobs/health", nil).Code)

	p.get("/dashboard", nil)
	rec := p.get("/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "portal_guard_redirects_total 1")
}
