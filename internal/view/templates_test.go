package view

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/portal/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func newRequestWithSession(t *testing.T, path string, id *shared.Identity) *http.Request {
	t.Helper()
	mr := miniredis.RunT(t)
	manager := shared.NewSessionManager(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test_session", "secret", time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	sess, err := manager.Load(context.Background(), req)
	require.NoError(t, err)
	if id != nil {
		require.NoError(t, sess.SaveIdentity(*id))
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestRendererShowsMenuForRole(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	rd := &Renderer{Engine: engine, CSRF: shared.NewCSRFManager("csrf")}

	req := newRequestWithSession(t, "/branches/7/edit", &shared.Identity{FullName: "Dana", Role: "CompanyManager", Token: "tok"})
	rr := httptest.NewRecorder()
	rd.Render(rr, req, "pages/dashboard.html", "Dashboard", map[string]any{"Cards": nil}, http.StatusOK)

	body := rr.Body.String()
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, body, `href="/branches"`)
	assert.Contains(t, body, `href="/employees"`)
	assert.NotContains(t, body, `href="/subcompanies"`)
	assert.NotContains(t, body, `href="/companies"`)
	assert.Contains(t, body, `<li class="active"><a href="/branches">`)
	assert.Contains(t, body, "companymanager")
}

func TestRendererAnonymousHasNoMenu(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	rd := &Renderer{Engine: engine, CSRF: shared.NewCSRFManager("csrf")}

	req := newRequestWithSession(t, "/auth/login", nil)
	rr := httptest.NewRecorder()
	rd.Render(rr, req, "pages/login.html", "Sign in", map[string]any{"Errors": map[string]string{}, "Form": map[string]string{}, "Next": ""}, http.StatusOK)

	body := rr.Body.String()
	assert.Contains(t, body, "<form")
	assert.NotContains(t, body, `class="sidebar"`)
}
