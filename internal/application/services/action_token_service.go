package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/unibazzar/marketplace-api/configs"
	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/auth"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
)

// ActionTokenService mints verification and password-reset tokens. Nothing is
// stored: a token stays valid only while the user fields folded into its
// fingerprint are unchanged and its expiry has not passed.
type ActionTokenService struct {
	secret []byte
	ttl    map[auth.Purpose]time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

func NewActionTokenService(cfg *configs.VerificationConfig, opts ...Option) ports.ActionTokenService {
	o := buildOptions(opts)
	return &ActionTokenService{
		secret: []byte(cfg.Secret),
		ttl: map[auth.Purpose]time.Duration{
			auth.PurposeEmailVerification: cfg.TokenTTL,
			auth.PurposePasswordReset:     cfg.ResetTokenTTL,
		},
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(o.now),
		),
		now: o.now,
	}
}

// fingerprint covers every field whose change must void outstanding tokens.
func (s *ActionTokenService) fingerprint(u *user.User, purpose auth.Purpose) string {
	var lastLogin string
	if u.LastLoginAt != nil {
		lastLogin = strconv.FormatInt(u.LastLoginAt.UTC().Unix(), 10)
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strings.Join([]string{
		string(purpose),
		u.ID.String(),
		u.Email,
		u.PasswordHash,
		lastLogin,
		strconv.FormatBool(u.IsEmailVerified),
	}, "|")))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (s *ActionTokenService) Mint(u *user.User, purpose auth.Purpose) (string, error) {
	ttl, ok := s.ttl[purpose]
	if !ok || ttl <= 0 {
		return "", errors.New("unknown token purpose")
	}
	now := s.now()
	claims := &auth.ActionClaims{
		Purpose:     purpose,
		Fingerprint: s.fingerprint(u, purpose),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *ActionTokenService) Check(u *user.User, purpose auth.Purpose, token string) error {
	claims := &auth.ActionClaims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return apperr.ErrTokenExpired.Wrap(err)
		}
		return apperr.ErrTokenInvalid.Wrap(err)
	}
	if claims.Purpose != purpose || claims.Subject != u.ID.String() {
		return apperr.ErrTokenInvalid
	}
	if !hmac.Equal([]byte(claims.Fingerprint), []byte(s.fingerprint(u, purpose))) {
		return apperr.ErrTokenInvalid
	}
	return nil
}

func (s *ActionTokenService) EncodeUID(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id.String()))
}

func (s *ActionTokenService) DecodeUID(uid string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return uuid.Nil, apperr.ErrTokenInvalid.Wrap(err)
	}
	id, err := uuid.Parse(string(raw))
	if err != nil {
		return uuid.Nil, apperr.ErrTokenInvalid.Wrap(err)
	}
	return id, nil
}
