package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/unibazzar/marketplace-api/internal/core/domain/auth"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
)

// SessionTokenService issues and validates access/refresh JWT pairs and owns the revocation list.
type SessionTokenService interface {
	IssuePair(ctx context.Context, u *user.User) (*auth.TokenPair, error)
	// Refresh consumes refreshToken and returns a rotated pair.
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, *auth.Claims, error)
	// ParseRefresh validates a refresh token without consulting or changing the blacklist.
	ParseRefresh(refreshToken string) (*auth.Claims, error)
	// Revoke blacklists a refresh token. Revoking twice is not an error.
	Revoke(ctx context.Context, refreshToken string) (*auth.Claims, error)
	// RevokeAccess blacklists an already validated access token.
	RevokeAccess(ctx context.Context, claims *auth.Claims) error
	// RevokeAllForUser blacklists every outstanding refresh token of the user.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, reason auth.BlacklistReason) (int, error)
	ValidateAccess(ctx context.Context, accessToken string) (*auth.Claims, error)
	RunCleanup(ctx context.Context, interval time.Duration)
}

// ActionTokenService mints stateless tokens bound to a user's current state.
type ActionTokenService interface {
	Mint(u *user.User, purpose auth.Purpose) (string, error)
	Check(u *user.User, purpose auth.Purpose, token string) error
	// EncodeUID and DecodeUID produce the opaque user reference placed in links.
	EncodeUID(id uuid.UUID) string
	DecodeUID(uid string) (uuid.UUID, error)
}

// TokenRepository stores outstanding refresh tokens and the jti blacklist.
type TokenRepository interface {
	RecordOutstanding(ctx context.Context, token *auth.OutstandingToken) error
	ListOutstanding(ctx context.Context, userID uuid.UUID) ([]*auth.OutstandingToken, error)
	// Blacklist inserts entry and reports whether this call created it.
	Blacklist(ctx context.Context, entry *auth.BlacklistEntry) (bool, error)
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// AuthService is the session flow: login, logout and refresh.
type AuthService interface {
	Login(ctx context.Context, req *auth.LoginRequest) (*auth.TokenPair, *user.User, error)
	Logout(ctx context.Context, refreshToken string, access *auth.Claims) error
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	// Authenticate resolves a bearer access token to an active user.
	Authenticate(ctx context.Context, accessToken string) (*user.User, *auth.Claims, error)
}

// AccountService covers authenticated self-service mutations and password reset.
type AccountService interface {
	UpdateProfile(ctx context.Context, u *user.User, req *user.UpdateProfileRequest) (*user.User, error)
	ChangePassword(ctx context.Context, u *user.User, req *user.ChangePasswordRequest) error
	// ChangeEmail resets verification and re-sends the verification email.
	ChangeEmail(ctx context.Context, u *user.User, newEmail string) (*DispatchResult, error)
	ChangePhone(ctx context.Context, u *user.User, phone string) (*user.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, req *user.PasswordResetConfirmRequest) error
}

// DispatchResult reports the primary outcome and the best-effort mail status separately.
type DispatchResult struct {
	User     *user.User
	MailSent bool
	MailErr  error
}

// VerificationService drives Unverified -> Verified.
type VerificationService interface {
	Register(ctx context.Context, req *user.RegisterRequest) (*DispatchResult, error)
	Confirm(ctx context.Context, uid, token string) (*user.User, error)
	Resend(ctx context.Context, email string) (*DispatchResult, error)
	// Dispatch mints a fresh verification token for u and mails it.
	Dispatch(ctx context.Context, u *user.User) error
}
