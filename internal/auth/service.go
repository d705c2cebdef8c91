package auth

import (
	"context"
	"time"

	"github.com/odyssey-erp/portal/internal/apiclient"
	"github.com/odyssey-erp/portal/internal/shared"
)

// Authenticator performs the credential exchange against the API.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (shared.Identity, error)
	Register(ctx context.Context, req apiclient.RegisterRequest) (shared.Identity, error)
}

// Service wraps authentication business rules.
type Service struct {
	api  Authenticator
	repo Repository
	now  func() time.Time
}

// NewService constructs a new Service. repo may be nil when no audit
// database is configured.
func NewService(api Authenticator, repo Repository) *Service {
	return &Service{api: api, repo: repo, now: time.Now}
}

// Authenticate exchanges email/password credentials for an identity.
func (s *Service) Authenticate(ctx context.Context, email, password string) (shared.Identity, error) {
	return s.api.Login(ctx, email, password)
}

// Register creates an account and returns its identity.
func (s *Service) Register(ctx context.Context, req apiclient.RegisterRequest) (shared.Identity, error) {
	return s.api.Register(ctx, req)
}

// RegisterSession records the sign-in for auditing. previousID is the session
// ID in use before sign-in.
func (s *Service) RegisterSession(ctx context.Context, sessionID, previousID string, id shared.Identity, ttl time.Duration, ip, ua string) error {
	if s.repo == nil {
		return nil
	}
	now := s.now()
	return s.repo.CreateSession(ctx, SignIn{
		SessionID: sessionID,
		Replaces:  previousID,
		UserID:    id.UserID,
		Email:     id.Email,
		Role:      id.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		IP:        ip,
		UserAgent: ua,
	})
}

// RemoveSession deletes the audit record of a session.
func (s *Service) RemoveSession(ctx context.Context, sessionID string) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.DeleteSession(ctx, sessionID)
}
