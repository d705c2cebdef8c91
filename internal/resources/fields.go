package resources

import "github.com/odyssey-erp/portal/internal/access"

// Field describes one column of a resource table and one input of its form.
type Field struct {
	Name     string
	Label    string
	Type     string
	Required bool
}

func text(name, label string, required bool) Field {
	return Field{Name: name, Label: label, Type: "text", Required: required}
}

var fieldsets = map[access.Resource][]Field{
	access.ResourceEmployees: {
		text("fullName", "Full name", true),
		{Name: "email", Label: "Email", Type: "email", Required: true},
		text("phone", "Phone", false),
		text("position", "Position", false),
		text("branchId", "Branch", false),
	},
	access.ResourceForms: {
		text("title", "Title", true),
		{Name: "description", Label: "Description", Type: "textarea"},
		text("status", "Status", false),
	},
	access.ResourceBranches: {
		text("name", "Name", true),
		text("address", "Address", false),
		text("phone", "Phone", false),
		text("subCompanyId", "Sub company", false),
	},
	access.ResourceSubCompanies: {
		text("name", "Name", true),
		text("address", "Address", false),
		text("companyId", "Company", false),
	},
	access.ResourceCompanies: {
		text("name", "Name", true),
		{Name: "email", Label: "Email", Type: "email"},
		text("phone", "Phone", false),
		text("address", "Address", false),
	},
	access.ResourceCategories: {
		text("name", "Name", true),
		{Name: "description", Label: "Description", Type: "textarea"},
	},
	access.ResourceFAQ: {
		text("question", "Question", true),
		{Name: "answer", Label: "Answer", Type: "textarea", Required: true},
	},
	access.ResourceSupplier: {
		text("name", "Name", true),
		{Name: "email", Label: "Email", Type: "email"},
		text("phone", "Phone", false),
		text("categoryId", "Category", false),
	},
	access.ResourceTypeOfUser: {
		text("name", "Name", true),
		{Name: "description", Label: "Description", Type: "textarea"},
	},
	access.ResourceMembers: {
		text("fullName", "Full name", true),
		{Name: "email", Label: "Email", Type: "email", Required: true},
		text("phone", "Phone", false),
		text("typeOfUserId", "Type of user", false),
	},
}

// Fields returns the form fields for res.
func Fields(res access.Resource) []Field {
	return fieldsets[res]
}
