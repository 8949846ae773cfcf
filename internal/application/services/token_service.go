package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/unibazzar/marketplace-api/configs"
	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/auth"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
)

// Option tunes service internals, mostly for tests.
type Option func(*options)

type options struct {
	now        func() time.Time
	bcryptCost int
}

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(o *options) { o.bcryptCost = cost }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, bcryptCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type TokenService struct {
	repo      ports.TokenRepository
	cfg       *configs.JWTConfig
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	parser    *jwt.Parser
	now       func() time.Time
	logger    *logrus.Logger
}

// NewTokenService builds the session token engine. The signing scheme is fixed
// for the lifetime of the process.
func NewTokenService(repo ports.TokenRepository, cfg *configs.JWTConfig, logger *logrus.Logger, opts ...Option) (ports.SessionTokenService, error) {
	o := buildOptions(opts)
	s := &TokenService{repo: repo, cfg: cfg, now: o.now, logger: logger}

	switch cfg.Algorithm {
	case "", "HS256":
		s.method = jwt.SigningMethodHS256
	case "HS384":
		s.method = jwt.SigningMethodHS384
	case "HS512":
		s.method = jwt.SigningMethodHS512
	case "RS256":
		s.method = jwt.SigningMethodRS256
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}

	if _, ok := s.method.(*jwt.SigningMethodHMAC); ok {
		if cfg.Secret == "" {
			return nil, errors.New("jwt secret is required for HMAC signing")
		}
		s.signKey = []byte(cfg.Secret)
		s.verifyKey = []byte(cfg.Secret)
	} else {
		privPEM, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read jwt private key: %w", err)
		}
		priv, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jwt private key: %w", err)
		}
		pubPEM, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read jwt public key: %w", err)
		}
		pub, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jwt public key: %w", err)
		}
		s.signKey = priv
		s.verifyKey = pub
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	s.parser = jwt.NewParser(parserOpts...)

	return s, nil
}

func (s *TokenService) sign(userID uuid.UUID, typ auth.TokenType, ttl time.Duration, now time.Time) (string, *auth.Claims, error) {
	claims := &auth.Claims{
		UserID:    userID,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.signKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return signed, claims, nil
}

func (s *TokenService) issuePair(ctx context.Context, userID uuid.UUID) (*auth.TokenPair, error) {
	now := s.now()
	access, _, err := s.sign(userID, auth.TokenTypeAccess, s.cfg.AccessTokenTTL, now)
	if err != nil {
		return nil, err
	}
	refresh, refreshClaims, err := s.sign(userID, auth.TokenTypeRefresh, s.cfg.RefreshTokenTTL, now)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RecordOutstanding(ctx, &auth.OutstandingToken{
		JTI:       refreshClaims.ID,
		UserID:    userID,
		ExpiresAt: s.acceptedUntil(refreshClaims.ExpiresAt.Time),
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("failed to record refresh token: %w", err)
	}
	return &auth.TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *TokenService) IssuePair(ctx context.Context, u *user.User) (*auth.TokenPair, error) {
	return s.issuePair(ctx, u.ID)
}

// parse validates signature, expiry and token type. It does not consult the blacklist.
func (s *TokenService) parse(token string, want auth.TokenType) (*auth.Claims, error) {
	claims := &auth.Claims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.verifyKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.ErrTokenExpired.Wrap(err)
		}
		return nil, apperr.ErrTokenInvalid.Wrap(err)
	}
	if claims.TokenType != want || claims.ID == "" {
		return nil, apperr.ErrTokenInvalid
	}
	sub, err := uuid.Parse(claims.Subject)
	if err != nil || sub != claims.UserID {
		return nil, apperr.ErrTokenInvalid
	}
	return claims, nil
}

func (s *TokenService) blacklisted(ctx context.Context, jti string) error {
	hit, err := s.repo.IsBlacklisted(ctx, jti)
	if err != nil {
		return apperr.Internal("failed to check token revocation", err)
	}
	if hit {
		return apperr.ErrTokenBlacklisted
	}
	return nil
}

// acceptedUntil is the last instant the parser still takes a token expiring
// at exp. Stored rows and cache keys must outlive it.
func (s *TokenService) acceptedUntil(exp time.Time) time.Time {
	return exp.Add(s.cfg.Leeway)
}

func (s *TokenService) entry(claims *auth.Claims, reason auth.BlacklistReason) *auth.BlacklistEntry {
	return &auth.BlacklistEntry{
		JTI:           claims.ID,
		UserID:        claims.UserID,
		ExpiresAt:     s.acceptedUntil(claims.ExpiresAt.Time),
		BlacklistedAt: s.now(),
		Reason:        reason,
	}
}

// Refresh retires the presented refresh token before minting its replacement.
// The blacklist insert is the consume step: of two concurrent refreshes with
// the same token only the one whose insert lands gets a new pair.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, *auth.Claims, error) {
	claims, err := s.parse(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, nil, err
	}
	if err := s.blacklisted(ctx, claims.ID); err != nil {
		return nil, nil, err
	}
	inserted, err := s.repo.Blacklist(ctx, s.entry(claims, auth.ReasonRotated))
	if err != nil {
		return nil, nil, apperr.Internal("failed to retire refresh token", err)
	}
	if !inserted {
		return nil, nil, apperr.ErrTokenBlacklisted
	}

	pair, err := s.issuePair(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": claims.UserID, "jti": claims.ID}).Debug("refresh token rotated")
	}
	return pair, claims, nil
}

func (s *TokenService) ParseRefresh(refreshToken string) (*auth.Claims, error) {
	return s.parse(refreshToken, auth.TokenTypeRefresh)
}

func (s *TokenService) Revoke(ctx context.Context, refreshToken string) (*auth.Claims, error) {
	claims, err := s.parse(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.Blacklist(ctx, s.entry(claims, auth.ReasonLogout)); err != nil {
		return nil, apperr.Internal("failed to revoke refresh token", err)
	}
	return claims, nil
}

func (s *TokenService) RevokeAccess(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.TokenType != auth.TokenTypeAccess {
		return apperr.ErrTokenInvalid
	}
	if _, err := s.repo.Blacklist(ctx, s.entry(claims, auth.ReasonLogout)); err != nil {
		return apperr.Internal("failed to revoke access token", err)
	}
	return nil
}

func (s *TokenService) RevokeAllForUser(ctx context.Context, userID uuid.UUID, reason auth.BlacklistReason) (int, error) {
	outstanding, err := s.repo.ListOutstanding(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list outstanding tokens: %w", err)
	}
	now := s.now()
	revoked := 0
	for _, t := range outstanding {
		if !t.ExpiresAt.After(now) {
			continue
		}
		inserted, err := s.repo.Blacklist(ctx, &auth.BlacklistEntry{
			JTI:           t.JTI,
			UserID:        t.UserID,
			ExpiresAt:     t.ExpiresAt,
			BlacklistedAt: now,
			Reason:        reason,
		})
		if err != nil {
			return revoked, fmt.Errorf("failed to blacklist token %s: %w", t.JTI, err)
		}
		if inserted {
			revoked++
		}
	}
	return revoked, nil
}

func (s *TokenService) ValidateAccess(ctx context.Context, accessToken string) (*auth.Claims, error) {
	claims, err := s.parse(accessToken, auth.TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	if err := s.blacklisted(ctx, claims.ID); err != nil {
		return nil, err
	}
	return claims, nil
}

// RunCleanup prunes expired outstanding and blacklisted rows until ctx is done.
func (s *TokenService) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			n, err := s.repo.DeleteExpired(runCtx)
			cancel()
			if s.logger == nil {
				continue
			}
			if err != nil {
				s.logger.WithError(err).Error("failed to cleanup expired tokens")
			} else if n > 0 {
				s.logger.WithFields(logrus.Fields{"rows": n}).Info("cleaned up expired tokens")
			}
		}
	}
}
