package services

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/unibazzar/marketplace-api/configs"
	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/audit"
	"github.com/unibazzar/marketplace-api/internal/core/domain/auth"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
	"github.com/unibazzar/marketplace-api/internal/utils"
)

type AuthService struct {
	users  ports.UserService
	tokens ports.SessionTokenService
	audit  ports.AuditService
	cfg    configs.AuthConfig
	logger *logrus.Logger

	dummyOnce sync.Once
	dummy     *user.User
}

func NewAuthService(users ports.UserService, tokens ports.SessionTokenService, auditSvc ports.AuditService, cfg configs.AuthConfig, logger *logrus.Logger) ports.AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		audit:  auditSvc,
		cfg:    cfg,
		logger: logger,
	}
}

// dummyUser carries a real bcrypt hash so unknown-email logins cost the same as wrong-password ones.
func (s *AuthService) dummyUser() *user.User {
	s.dummyOnce.Do(func() {
		h, _ := bcrypt.GenerateFromPassword([]byte("unibazzar-timing-equalizer"), bcrypt.DefaultCost)
		s.dummy = &user.User{PasswordHash: string(h)}
	})
	return s.dummy
}

// Login checks credentials first and the verification gate second, so a
// correct password on an unverified account is always EmailNotVerified.
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.TokenPair, *user.User, error) {
	email := utils.NormalizeEmail(req.Email)
	found, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, apperr.Internal("failed to load user", err)
	}
	if found == nil {
		s.users.VerifyPassword(s.dummyUser(), req.Password)
		recordEvent(ctx, s.audit, nil, audit.ActionLogin, audit.OutcomeFailure, map[string]string{"reason": "unknown_email"})
		return nil, nil, apperr.ErrInvalidCredentials
	}
	if !s.users.VerifyPassword(found, req.Password) || !found.IsActive {
		recordEvent(ctx, s.audit, found, audit.ActionLogin, audit.OutcomeFailure, map[string]string{"reason": "invalid_credentials"})
		return nil, nil, apperr.ErrInvalidCredentials
	}
	if !found.IsEmailVerified {
		recordEvent(ctx, s.audit, found, audit.ActionLogin, audit.OutcomeFailure, map[string]string{"reason": "email_not_verified"})
		if s.cfg.UniformLoginErrors {
			return nil, nil, apperr.ErrInvalidCredentials
		}
		return nil, nil, apperr.ErrEmailNotVerified
	}

	pair, err := s.tokens.IssuePair(ctx, found)
	if err != nil {
		return nil, nil, apperr.Internal("failed to issue tokens", err)
	}

	if updated, err := s.users.TouchLastLogin(ctx, found); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"user_id": found.ID}).WithError(err).Warn("failed to update user last login time")
		}
	} else {
		found = updated
	}

	recordEvent(ctx, s.audit, found, audit.ActionLogin, audit.OutcomeSuccess, nil)
	return pair, found, nil
}

// Logout revokes the refresh token and, when present, the access token that authorised the call.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, access *auth.Claims) error {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		countEvent(string(audit.ActionLogout), string(audit.OutcomeFailure))
		return err
	}
	if access != nil && claims.UserID != access.UserID {
		countEvent(string(audit.ActionLogout), string(audit.OutcomeFailure))
		return apperr.ErrTokenInvalid
	}
	if _, err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		countEvent(string(audit.ActionLogout), string(audit.OutcomeFailure))
		return err
	}
	if access != nil {
		if err := s.tokens.RevokeAccess(ctx, access); err != nil && s.logger != nil {
			s.logger.WithFields(logrus.Fields{"user_id": access.UserID, "jti": access.ID}).WithError(err).Warn("failed to revoke access token on logout")
		}
	}
	recordEvent(ctx, s.audit, &user.User{ID: claims.UserID}, audit.ActionLogout, audit.OutcomeSuccess, nil)
	return nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	pair, claims, err := s.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		countEvent(string(audit.ActionRefresh), string(audit.OutcomeFailure))
		return nil, err
	}
	u, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil || !u.IsActive {
		if _, rerr := s.tokens.Revoke(ctx, pair.Refresh); rerr != nil && s.logger != nil {
			s.logger.WithFields(logrus.Fields{"user_id": claims.UserID}).WithError(rerr).Warn("failed to revoke replacement token for inactive user")
		}
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Internal("failed to load user", err)
		}
		countEvent(string(audit.ActionRefresh), string(audit.OutcomeFailure))
		return nil, apperr.ErrTokenInvalid
	}
	recordEvent(ctx, s.audit, u, audit.ActionRefresh, audit.OutcomeSuccess, nil)
	return pair, nil
}

func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*user.User, *auth.Claims, error) {
	claims, err := s.tokens.ValidateAccess(ctx, accessToken)
	if err != nil {
		return nil, nil, err
	}
	u, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil, apperr.ErrTokenInvalid
		}
		return nil, nil, apperr.Internal("failed to load user", err)
	}
	if !u.IsActive {
		return nil, nil, apperr.ErrTokenInvalid
	}
	return u, claims, nil
}
