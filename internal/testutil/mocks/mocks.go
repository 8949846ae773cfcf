// Package mocks holds Fn-field test doubles for the core ports plus a few
// in-memory repositories for flow tests that need real state.
package mocks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/audit"
	"github.com/unibazzar/marketplace-api/internal/core/domain/auth"
	"github.com/unibazzar/marketplace-api/internal/core/domain/policy"
	"github.com/unibazzar/marketplace-api/internal/core/domain/resource"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
)

// AuditServiceMock records every logged action.
type AuditServiceMock struct {
	mu      sync.Mutex
	Entries []*audit.CreateAuditLogRequest

	GetAuditLogsFn func(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, int, error)
}

func (m *AuditServiceMock) LogAction(ctx context.Context, req *audit.CreateAuditLogRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, req)
}

func (m *AuditServiceMock) GetAuditLogs(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, int, error) {
	if m.GetAuditLogsFn != nil {
		return m.GetAuditLogsFn(ctx, filter)
	}
	return []*audit.AuditLog{}, 0, nil
}

// Actions returns the recorded actions in order.
func (m *AuditServiceMock) Actions() []audit.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.AuditAction, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, e.Action)
	}
	return out
}

// SentMail is one message captured by MailerMock.
type SentMail struct {
	Kind  string
	User  *user.User
	Email string
	Link  string
}

// MailerMock captures outgoing mail. Err, when set, is returned from every send.
type MailerMock struct {
	mu   sync.Mutex
	Sent []SentMail
	Err  error
}

func (m *MailerMock) record(kind string, u *user.User, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentMail{Kind: kind, User: u, Email: u.Email, Link: link})
	return m.Err
}

func (m *MailerMock) SendVerificationEmail(ctx context.Context, u *user.User, link string) error {
	return m.record("verification", u, link)
}

func (m *MailerMock) SendPasswordResetEmail(ctx context.Context, u *user.User, link string) error {
	return m.record("password_reset", u, link)
}

// Last returns the most recent message, or nil.
func (m *MailerMock) Last() *SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	s := m.Sent[len(m.Sent)-1]
	return &s
}

// RateLimiterMock allows everything unless AllowFn says otherwise.
type RateLimiterMock struct {
	AllowFn func(ctx context.Context, key string) (*ports.RateLimitDecision, error)
}

func (m *RateLimiterMock) Allow(ctx context.Context, key string) (*ports.RateLimitDecision, error) {
	if m.AllowFn != nil {
		return m.AllowFn(ctx, key)
	}
	return &ports.RateLimitDecision{Allowed: true, Limit: 100, Remaining: 99, Reset: time.Now().Add(time.Minute)}, nil
}

// AuthServiceMock is a lightweight mock for AuthService.
type AuthServiceMock struct {
	LoginFn        func(ctx context.Context, req *auth.LoginRequest) (*auth.TokenPair, *user.User, error)
	LogoutFn       func(ctx context.Context, refreshToken string, access *auth.Claims) error
	RefreshFn      func(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	AuthenticateFn func(ctx context.Context, accessToken string) (*user.User, *auth.Claims, error)
}

func (m *AuthServiceMock) Login(ctx context.Context, req *auth.LoginRequest) (*auth.TokenPair, *user.User, error) {
	if m.LoginFn != nil {
		return m.LoginFn(ctx, req)
	}
	return nil, nil, apperr.ErrInvalidCredentials
}

func (m *AuthServiceMock) Logout(ctx context.Context, refreshToken string, access *auth.Claims) error {
	if m.LogoutFn != nil {
		return m.LogoutFn(ctx, refreshToken, access)
	}
	return nil
}

func (m *AuthServiceMock) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	if m.RefreshFn != nil {
		return m.RefreshFn(ctx, refreshToken)
	}
	return nil, apperr.ErrTokenInvalid
}

func (m *AuthServiceMock) Authenticate(ctx context.Context, accessToken string) (*user.User, *auth.Claims, error) {
	if m.AuthenticateFn != nil {
		return m.AuthenticateFn(ctx, accessToken)
	}
	return nil, nil, apperr.ErrTokenInvalid
}

// ResourceServiceMock is a lightweight mock for ResourceService.
type ResourceServiceMock struct {
	ListFn        func(ctx context.Context, actor *policy.Actor, filter *resource.ListFilter) ([]*resource.Resource, int, error)
	OwnerScopedFn func(ctx context.Context, actor *policy.Actor, kind resource.Kind, limit, offset int) ([]*resource.Resource, int, error)
	GetFn         func(ctx context.Context, actor *policy.Actor, kind resource.Kind, id uuid.UUID) (*resource.Resource, error)
	CreateFn      func(ctx context.Context, actor *policy.Actor, kind resource.Kind, payload json.RawMessage) (*resource.Resource, error)
	UpdateFn      func(ctx context.Context, actor *policy.Actor, kind resource.Kind, id uuid.UUID, payload json.RawMessage) (*resource.Resource, error)
	DeleteFn      func(ctx context.Context, actor *policy.Actor, kind resource.Kind, id uuid.UUID) error
}

func (m *ResourceServiceMock) List(ctx context.Context, actor *policy.Actor, filter *resource.ListFilter) ([]*resource.Resource, int, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, actor, filter)
	}
	return []*resource.Resource{}, 0, nil
}

func (m *ResourceServiceMock) OwnerScoped(ctx context.Context, actor *policy.Actor, kind resource.Kind, limit, offset int) ([]*resource.Resource, int, error) {
	if m.OwnerScopedFn != nil {
		return m.OwnerScopedFn(ctx, actor, kind, limit, offset)
	}
	return []*resource.Resource{}, 0, nil
}

func (m *ResourceServiceMock) Get(ctx context.Context, actor *policy.Actor, kind resource.Kind, id uuid.UUID) (*resource.Resource, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, actor, kind, id)
	}
	return nil, apperr.ErrNotFound
}

func (m *ResourceServiceMock) Create(ctx context.Context, actor *policy.Actor, kind resource.Kind, payload json.RawMessage) (*resource.Resource, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, actor, kind, payload)
	}
	return nil, apperr.ErrForbidden
}

func (m *ResourceServiceMock) Update(ctx context.Context, actor *policy.Actor, kind resource.Kind, id uuid.UUID, payload json.RawMessage) (*resource.Resource, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, actor, kind, id, payload)
	}
	return nil, apperr.ErrForbidden
}

func (m *ResourceServiceMock) Delete(ctx context.Context, actor *policy.Actor, kind resource.Kind, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, actor, kind, id)
	}
	return apperr.ErrForbidden
}

// HealthCheckerMock reports Err from Check.
type HealthCheckerMock struct {
	NameValue string
	Err       error
}

func (m *HealthCheckerMock) Name() string                    { return m.NameValue }
func (m *HealthCheckerMock) Check(ctx context.Context) error { return m.Err }
