package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token for rotation or logout
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// TokenPair is the result of a successful login or refresh
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenType represents the type of token
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the session token claims. Subject and ID (jti) live in
// RegisteredClaims; UserID duplicates the subject for clients that read it.
type Claims struct {
	UserID    uuid.UUID `json:"user_id"`
	TokenType TokenType `json:"token_type"`

	jwt.RegisteredClaims
}

// Purpose scopes a stateless action token to one flow.
type Purpose string

const (
	PurposeEmailVerification Purpose = "email_verification"
	PurposePasswordReset     Purpose = "password_reset"
)

// ActionClaims are carried by verification and password-reset tokens.
// Fingerprint binds the token to the user state it was minted against.
type ActionClaims struct {
	Purpose     Purpose `json:"purpose"`
	Fingerprint string  `json:"fp"`

	jwt.RegisteredClaims
}

// OutstandingToken records an issued refresh token. ExpiresAt includes the
// validation leeway.
type OutstandingToken struct {
	JTI       string    `json:"jti" db:"jti"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BlacklistReason explains why a jti was revoked.
type BlacklistReason string

const (
	ReasonRotated        BlacklistReason = "rotated"
	ReasonLogout         BlacklistReason = "logout"
	ReasonPasswordChange BlacklistReason = "password_change"
)

// BlacklistEntry marks a jti as revoked until the token's expiry plus the
// validation leeway.
type BlacklistEntry struct {
	JTI           string          `json:"jti" db:"jti"`
	UserID        uuid.UUID       `json:"user_id" db:"user_id"`
	ExpiresAt     time.Time       `json:"expires_at" db:"expires_at"`
	BlacklistedAt time.Time       `json:"blacklisted_at" db:"blacklisted_at"`
	Reason        BlacklistReason `json:"reason" db:"reason"`
}
