package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsVisibleMatrix(t *testing.T) {
	all := Roles()
	expected := map[Resource][]Role{
		ResourceDashboard:    all,
		ResourceForms:        all,
		ResourceMembers:      all,
		ResourceEmployees:    {RoleBranchManager, RoleCompanyManager, RoleAdmin, RoleSuperAdmin},
		ResourceBranches:     {RoleCompanyManager, RoleAdmin, RoleSuperAdmin},
		ResourceSubCompanies: {RoleAdmin, RoleSuperAdmin},
		ResourceCompanies:    {RoleSuperAdmin},
		ResourceCategories:   {RoleSuperAdmin},
		ResourceFAQ:          {RoleSuperAdmin},
		ResourceSupplier:     {RoleSuperAdmin},
		ResourceTypeOfUser:   {RoleSuperAdmin},
	}
	require.Len(t, expected, len(Resources()))

	for _, res := range Resources() {
		allowed := make(map[Role]bool)
		for _, role := range expected[res] {
			allowed[role] = true
		}
		for _, role := range all {
			assert.Equal(t, allowed[role], IsVisible(role, res), "role=%s resource=%s", role, res)
		}
	}
}

func TestSuperAdminSeesEverything(t *testing.T) {
	for _, res := range Resources() {
		assert.True(t, IsVisible(RoleSuperAdmin, res), res)
	}
}

func TestEveryRoleSeesCommonResources(t *testing.T) {
	for _, role := range Roles() {
		for _, res := range []Resource{ResourceDashboard, ResourceForms, ResourceMembers} {
			assert.True(t, IsVisible(role, res), "role=%s resource=%s", role, res)
		}
	}
}

func TestParseRoleIsCaseInsensitive(t *testing.T) {
	cases := map[string]Role{
		"superadmin":      RoleSuperAdmin,
		"SuperAdmin":      RoleSuperAdmin,
		" ADMIN ":         RoleAdmin,
		"CompanyManager":  RoleCompanyManager,
		"BranchManager":   RoleBranchManager,
		"":                RoleDefault,
		"null":            RoleDefault,
		"guest":           RoleDefault,
		"branch manager":  RoleDefault,
		"company_manager": RoleDefault,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseRole(raw), raw)
	}
}

func TestMixedCaseBranchManager(t *testing.T) {
	role := ParseRole("BranchManager")
	assert.True(t, IsVisible(role, ResourceEmployees))
	assert.False(t, IsVisible(role, ResourceBranches))
}

func TestEmptyRoleIsLeastPrivileged(t *testing.T) {
	role := ParseRole("")
	for _, res := range Resources() {
		want := res == ResourceDashboard || res == ResourceForms || res == ResourceMembers
		assert.Equal(t, want, IsVisible(role, res), res)
	}
}

func TestUnknownResource(t *testing.T) {
	assert.False(t, IsVisible(RoleSuperAdmin, Resource("payroll")))

	ok, err := Check("superadmin", "payroll")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrUnknownResource)

	_, err = ParseResource("")
	assert.ErrorIs(t, err, ErrUnknownResource)
}

func TestCheck(t *testing.T) {
	ok, err := Check("Admin", "SubCompanies")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Check("companymanager", "subcompanies")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsVisibleIsDeterministic(t *testing.T) {
	for _, role := range Roles() {
		for _, res := range Resources() {
			first := IsVisible(role, res)
			for i := 0; i < 5; i++ {
				require.Equal(t, first, IsVisible(role, res))
			}
		}
	}
}

func TestResourcesReturnsCopy(t *testing.T) {
	got := Resources()
	got[0] = "mutated"
	assert.Equal(t, ResourceDashboard, Resources()[0])
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "default", RoleDefault.String())
	assert.Equal(t, "admin", RoleAdmin.String())
}
