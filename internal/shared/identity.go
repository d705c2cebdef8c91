package shared

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Session keys holding the authenticated identity. Every value is a flat
// string, numeric and GUID identifiers included.
const (
	KeyUserID       = "userId"
	KeyUserEmail    = "userEmail"
	KeyFullName     = "fullname"
	KeyCompanyID    = "companyID"
	KeySubCompanyID = "subCompanyID"
	KeyBranchID     = "branchID"
	KeyUserRole     = "userRole"
	KeyToken        = "token"
)

var identityKeys = []string{
	KeyUserID,
	KeyUserEmail,
	KeyFullName,
	KeyCompanyID,
	KeySubCompanyID,
	KeyBranchID,
	KeyUserRole,
	KeyToken,
}

var identityValidator = newIdentityValidator()

func newIdentityValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// Identity is the authenticated user and tenant scope held by a session.
// Tenant IDs are empty for users not bound to a company, such as superadmins.
type Identity struct {
	UserID       string
	Email        string
	FullName     string
	Role         string `validate:"required,notblank"`
	CompanyID    string
	SubCompanyID string
	BranchID     string
	Token        string `validate:"required,notblank"`
}

// Authenticated reports whether the identity carries a credential and role.
func (id Identity) Authenticated() bool {
	return strings.TrimSpace(id.Token) != "" && strings.TrimSpace(id.Role) != ""
}

// IdentityStore is the session store seen by the rest of the portal. It is
// satisfied by *Session so each request works on its own session.
type IdentityStore interface {
	SaveIdentity(id Identity) error
	Identity() Identity
	ClearIdentity()
}

var _ IdentityStore = (*Session)(nil)

// SaveIdentity replaces the stored identity in one step. Readers never
// observe a mix of old and new fields. Token and Role are required and stored
// verbatim; placeholder tenant IDs are stored as absent.
func (s *Session) SaveIdentity(id Identity) error {
	if err := identityValidator.Struct(id); err != nil {
		return fmt.Errorf("%w: %v", ErrIncompleteIdentity, err)
	}
	if isPlaceholder(id.Token) || isPlaceholder(id.Role) {
		return fmt.Errorf("%w: placeholder token or role", ErrIncompleteIdentity)
	}

	fields := map[string]string{
		KeyUserID:       id.UserID,
		KeyUserEmail:    id.Email,
		KeyFullName:     id.FullName,
		KeyCompanyID:    tenantValue(id.CompanyID),
		KeySubCompanyID: tenantValue(id.SubCompanyID),
		KeyBranchID:     tenantValue(id.BranchID),
		KeyUserRole:     id.Role,
		KeyToken:        id.Token,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range identityKeys {
		value := fields[key]
		if value == "" {
			s.del(key)
			continue
		}
		s.set(key, value)
	}
	return nil
}

// Identity returns the stored identity. Fields never set are empty.
func (s *Session) Identity() Identity {
	if s == nil {
		return Identity{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Identity{
		UserID:       s.values[KeyUserID],
		Email:        s.values[KeyUserEmail],
		FullName:     s.values[KeyFullName],
		Role:         s.values[KeyUserRole],
		CompanyID:    s.values[KeyCompanyID],
		SubCompanyID: s.values[KeySubCompanyID],
		BranchID:     s.values[KeyBranchID],
		Token:        s.values[KeyToken],
	}
}

// ClearIdentity removes every identity field. Clearing an empty session is a
// no-op.
func (s *Session) ClearIdentity() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range identityKeys {
		s.del(key)
	}
}

// isPlaceholder reports the markers serialisers emit for missing values.
func isPlaceholder(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "undefined", "null", "<nil>":
		return true
	}
	return false
}

func tenantValue(v string) string {
	if isPlaceholder(v) {
		return ""
	}
	return v
}
