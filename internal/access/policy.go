package access

// rule lists the roles allowed to see a resource. A nil set means every role,
// including RoleDefault.
type rule map[Role]struct{}

func roles(rs ...Role) rule {
	set := make(rule, len(rs))
	for _, r := range rs {
		set[r] = struct{}{}
	}
	return set
}

var rules = map[Resource]rule{
	ResourceDashboard:    nil,
	ResourceForms:        nil,
	ResourceMembers:      nil,
	ResourceEmployees:    roles(RoleBranchManager, RoleCompanyManager, RoleAdmin, RoleSuperAdmin),
	ResourceBranches:     roles(RoleCompanyManager, RoleAdmin, RoleSuperAdmin),
	ResourceSubCompanies: roles(RoleAdmin, RoleSuperAdmin),
	ResourceCompanies:    roles(RoleSuperAdmin),
	ResourceCategories:   roles(RoleSuperAdmin),
	ResourceFAQ:          roles(RoleSuperAdmin),
	ResourceSupplier:     roles(RoleSuperAdmin),
	ResourceTypeOfUser:   roles(RoleSuperAdmin),
}

// IsVisible reports whether role may see and operate on res. It is pure and
// returns false for resources outside the closed set.
func IsVisible(role Role, res Resource) bool {
	allowed, ok := rules[res]
	if !ok {
		return false
	}
	if allowed == nil {
		return true
	}
	_, ok = allowed[role]
	return ok
}

// Check evaluates raw role and resource strings. An unknown resource is a
// programming error and is reported as ErrUnknownResource alongside false.
func Check(role, resource string) (bool, error) {
	res, err := ParseResource(resource)
	if err != nil {
		return false, err
	}
	return IsVisible(ParseRole(role), res), nil
}
