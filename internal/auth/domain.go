package auth

import "time"

// SignIn is an audit record of a portal session bound to an API identity.
// Replaces names the pre-sign-in session ID whose record, if any, it supersedes.
type SignIn struct {
	SessionID string
	Replaces  string
	UserID    string
	Email     string
	Role      string
	CreatedAt time.Time
	ExpiresAt time.Time
	IP        string
	UserAgent string
}
