package apiclient

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/odyssey-erp/portal/internal/shared"
)

// RegisterRequest carries the sign-up form.
type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for an identity. A 400 or 401 means the
// credentials were refused.
func (c *Client) Login(ctx context.Context, email, password string) (shared.Identity, error) {
	return c.exchange(ctx, "Login", loginRequest{Email: email, Password: password}, http.StatusUnauthorized, http.StatusBadRequest)
}

// Register creates an account and signs it in. Payload rejections keep the
// API message and match ErrValidation.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (shared.Identity, error) {
	return c.exchange(ctx, "Register", req, http.StatusUnauthorized)
}

// exchange posts to the auth controller. Statuses listed in refused map to
// ErrInvalidCredentials.
func (c *Client) exchange(ctx context.Context, action string, body any, refused ...int) (shared.Identity, error) {
	var payload map[string]any
	err := c.do(ctx, shared.Identity{}, http.MethodPost, c.baseURL+"/api/Auth/"+action, body, &payload)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && slices.Contains(refused, se.Status) {
			return shared.Identity{}, shared.ErrInvalidCredentials
		}
		return shared.Identity{}, err
	}
	id := identityFromPayload(payload)
	if !id.Authenticated() {
		return shared.Identity{}, shared.ErrIncompleteIdentity
	}
	return id, nil
}

// identityFromPayload reads the auth response, tolerating either flat or
// "user"-nested shapes and any key casing.
func identityFromPayload(payload map[string]any) shared.Identity {
	lookup := func(keys ...string) string {
		for _, scope := range scopes(payload) {
			for _, key := range keys {
				for k, v := range scope {
					if strings.EqualFold(k, key) {
						if s := stringify(v); s != "" {
							return s
						}
					}
				}
			}
		}
		return ""
	}
	return shared.Identity{
		UserID:       lookup("userId", "id"),
		Email:        lookup("email", "userEmail"),
		FullName:     lookup("fullName", "fullname", "name"),
		Role:         lookup("role", "userRole"),
		CompanyID:    lookup("companyId"),
		SubCompanyID: lookup("subCompanyId"),
		BranchID:     lookup("branchId"),
		Token:        lookup("token", "accessToken"),
	}
}

func scopes(payload map[string]any) []map[string]any {
	out := []map[string]any{payload}
	for k, v := range payload {
		if nested, ok := v.(map[string]any); ok {
			switch strings.ToLower(k) {
			case "user", "data":
				out = append(out, nested)
			}
		}
	}
	return out
}
