// Package nav builds the role-filtered navigation menu.
package nav

import (
	"strings"

	"github.com/odyssey-erp/portal/internal/access"
)

// Entry is a single navigation item.
type Entry struct {
	Resource access.Resource
	Label    string
	Route    string
}

var catalogue = []Entry{
	{Resource: access.ResourceDashboard, Label: "Dashboard", Route: "/dashboard"},
	{Resource: access.ResourceEmployees, Label: "Employees", Route: "/employees"},
	{Resource: access.ResourceForms, Label: "Forms", Route: "/forms"},
	{Resource: access.ResourceBranches, Label: "Branches", Route: "/branches"},
	{Resource: access.ResourceSubCompanies, Label: "Sub Companies", Route: "/subcompanies"},
	{Resource: access.ResourceCompanies, Label: "Companies", Route: "/companies"},
	{Resource: access.ResourceCategories, Label: "Categories", Route: "/categories"},
	{Resource: access.ResourceFAQ, Label: "FAQ", Route: "/faq"},
	{Resource: access.ResourceSupplier, Label: "Suppliers", Route: "/supplier"},
	{Resource: access.ResourceTypeOfUser, Label: "Type of User", Route: "/typeofuser"},
	{Resource: access.ResourceMembers, Label: "Members", Route: "/members"},
}

// All returns every navigation entry in display order.
func All() []Entry {
	out := make([]Entry, len(catalogue))
	copy(out, catalogue)
	return out
}

// Lookup returns the entry for res.
func Lookup(res access.Resource) (Entry, bool) {
	for _, e := range catalogue {
		if e.Resource == res {
			return e, true
		}
	}
	return Entry{}, false
}

// BuildMenu returns the entries role may see, preserving display order.
func BuildMenu(role access.Role) []Entry {
	menu := make([]Entry, 0, len(catalogue))
	for _, e := range catalogue {
		if access.IsVisible(role, e.Resource) {
			menu = append(menu, e)
		}
	}
	return menu
}

// Active returns the route of the entry owning path, or "" when none does.
func Active(entries []Entry, path string) string {
	for _, e := range entries {
		if path == e.Route || strings.HasPrefix(path, e.Route+"/") {
			return e.Route
		}
	}
	return ""
}
