package nav_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/portal/internal/access"
	"github.com/odyssey-erp/portal/internal/nav"
	"github.com/odyssey-erp/portal/internal/shared"
)

func resourcesOf(entries []nav.Entry) []access.Resource {
	out := make([]access.Resource, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Resource)
	}
	return out
}

func TestCatalogueCoversEveryResourceOnce(t *testing.T) {
	if diff := cmp.Diff(access.Resources(), resourcesOf(nav.All())); diff != "" {
		t.Fatalf("catalogue order mismatch (-want +got):\n%s", diff)
	}
	routes := make(map[string]bool)
	for _, e := range nav.All() {
		assert.NotEmpty(t, e.Label)
		assert.False(t, routes[e.Route], "duplicate route %s", e.Route)
		routes[e.Route] = true
	}
}

func TestBuildMenuFollowsPolicy(t *testing.T) {
	for _, role := range access.Roles() {
		menu := nav.BuildMenu(role)

		var want []access.Resource
		for _, res := range access.Resources() {
			if access.IsVisible(role, res) {
				want = append(want, res)
			}
		}
		if diff := cmp.Diff(want, resourcesOf(menu)); diff != "" {
			t.Errorf("role %s menu mismatch (-want +got):\n%s", role, diff)
		}

		seen := make(map[access.Resource]bool)
		for _, e := range menu {
			require.False(t, seen[e.Resource], "duplicate %s for %s", e.Resource, role)
			seen[e.Resource] = true
		}
	}
}

func TestBuildMenuIsStable(t *testing.T) {
	for _, role := range access.Roles() {
		first := nav.BuildMenu(role)
		for i := 0; i < 3; i++ {
			if diff := cmp.Diff(first, nav.BuildMenu(role)); diff != "" {
				t.Fatalf("menu for %s changed between renders:\n%s", role, diff)
			}
		}
	}
}

func TestBranchManagerMenu(t *testing.T) {
	want := []access.Resource{access.ResourceDashboard, access.ResourceEmployees, access.ResourceForms, access.ResourceMembers}
	if diff := cmp.Diff(want, resourcesOf(nav.BuildMenu(access.ParseRole("BranchManager")))); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestMenuAcrossSignInAndSignOut(t *testing.T) {
	mr := miniredis.RunT(t)
	sm := shared.NewSessionManager(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "s", "secret", time.Hour, false)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	require.NoError(t, sess.SaveIdentity(shared.Identity{Role: "superadmin", Token: "abc"}))
	menu := nav.BuildMenu(access.ParseRole(sess.Identity().Role))
	if diff := cmp.Diff(access.Resources(), resourcesOf(menu)); diff != "" {
		t.Fatalf("superadmin menu (-want +got):\n%s", diff)
	}

	sess.ClearIdentity()
	menu = nav.BuildMenu(access.ParseRole(sess.Identity().Role))
	want := []access.Resource{access.ResourceDashboard, access.ResourceForms, access.ResourceMembers}
	if diff := cmp.Diff(want, resourcesOf(menu)); diff != "" {
		t.Fatalf("signed-out menu (-want +got):\n%s", diff)
	}
}

func TestActive(t *testing.T) {
	menu := nav.BuildMenu(access.RoleSuperAdmin)
	assert.Equal(t, "/branches", nav.Active(menu, "/branches"))
	assert.Equal(t, "/branches", nav.Active(menu, "/branches/12/edit"))
	assert.Equal(t, "/supplier", nav.Active(menu, "/supplier/new"))
	assert.Equal(t, "", nav.Active(menu, "/branchesx"))
	assert.Equal(t, "", nav.Active(nav.BuildMenu(access.RoleDefault), "/companies"))
}

func TestLookup(t *testing.T) {
	e, ok := nav.Lookup(access.ResourceTypeOfUser)
	require.True(t, ok)
	assert.Equal(t, "/typeofuser", e.Route)

	_, ok = nav.Lookup(access.Resource("payroll"))
	assert.False(t, ok)
}
