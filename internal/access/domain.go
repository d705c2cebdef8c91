// Package access holds the role-visibility policy shared by navigation and
// route protection.
package access

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
)

// ErrUnknownResource indicates a resource name outside the closed set.
var ErrUnknownResource = errors.New("access: unknown resource")

// Role is the authorization level carried by a session.
type Role string

// Known roles. RoleDefault is the least privileged role and covers empty and
// unrecognised values.
const (
	RoleSuperAdmin     Role = "superadmin"
	RoleAdmin          Role = "admin"
	RoleCompanyManager Role = "companymanager"
	RoleBranchManager  Role = "branchmanager"
	RoleDefault        Role = ""
)

// Resource names a manageable entity type exposed by the portal.
type Resource string

// Resources in navigation order.
const (
	ResourceDashboard    Resource = "dashboard"
	ResourceEmployees    Resource = "employees"
	ResourceForms        Resource = "forms"
	ResourceBranches     Resource = "branches"
	ResourceSubCompanies Resource = "subcompanies"
	ResourceCompanies    Resource = "companies"
	ResourceCategories   Resource = "categories"
	ResourceFAQ          Resource = "faq"
	ResourceSupplier     Resource = "supplier"
	ResourceTypeOfUser   Resource = "typeofuser"
	ResourceMembers      Resource = "members"
)

var allResources = []Resource{
	ResourceDashboard,
	ResourceEmployees,
	ResourceForms,
	ResourceBranches,
	ResourceSubCompanies,
	ResourceCompanies,
	ResourceCategories,
	ResourceFAQ,
	ResourceSupplier,
	ResourceTypeOfUser,
	ResourceMembers,
}

// Roles returns every known role, most privileged first.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleAdmin, RoleCompanyManager, RoleBranchManager, RoleDefault}
}

// Resources returns the closed resource set in declaration order. The slice is
// a copy and may be modified by the caller.
func Resources() []Resource {
	out := make([]Resource, len(allResources))
	copy(out, allResources)
	return out
}

// ParseRole normalises a stored role string. Comparison is case-insensitive;
// anything outside the known set maps to RoleDefault.
func ParseRole(raw string) Role {
	role := Role(fold(raw))
	switch role {
	case RoleSuperAdmin, RoleAdmin, RoleCompanyManager, RoleBranchManager:
		return role
	default:
		return RoleDefault
	}
}

// ParseResource resolves a resource name case-insensitively.
func ParseResource(raw string) (Resource, error) {
	res := Resource(fold(raw))
	if !res.Valid() {
		return "", ErrUnknownResource
	}
	return res, nil
}

// Valid reports whether r belongs to the closed resource set.
func (r Resource) Valid() bool {
	_, ok := rules[r]
	return ok
}

// String returns the role name, "default" for the least privileged role.
func (r Role) String() string {
	if r == RoleDefault {
		return "default"
	}
	return string(r)
}

func fold(raw string) string {
	return cases.Fold().String(strings.TrimSpace(raw))
}
