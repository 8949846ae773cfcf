package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/unibazzar/marketplace-api/configs"
	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/audit"
	"github.com/unibazzar/marketplace-api/internal/core/domain/auth"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
	"github.com/unibazzar/marketplace-api/internal/utils"
)

type VerificationService struct {
	users       ports.UserService
	tokens      ports.ActionTokenService
	mailer      ports.Mailer
	mailLimiter ports.RateLimiter
	audit       ports.AuditService
	cfg         *configs.VerificationConfig
	logger      *logrus.Logger
}

func NewVerificationService(users ports.UserService, tokens ports.ActionTokenService, mailer ports.Mailer, mailLimiter ports.RateLimiter, auditSvc ports.AuditService, cfg *configs.VerificationConfig, logger *logrus.Logger) ports.VerificationService {
	return &VerificationService{
		users:       users,
		tokens:      tokens,
		mailer:      mailer,
		mailLimiter: mailLimiter,
		audit:       auditSvc,
		cfg:         cfg,
		logger:      logger,
	}
}

func (s *VerificationService) Register(ctx context.Context, req *user.RegisterRequest) (*ports.DispatchResult, error) {
	if req.Password != req.ConfirmPassword {
		return nil, apperr.ErrPasswordMismatch.WithField("confirm_password", apperr.ErrPasswordMismatch.Message)
	}
	if err := s.users.CheckPasswordStrength(req.Password); err != nil {
		return nil, err
	}

	created, err := s.users.CreateUser(ctx, &user.CreateUserParams{
		Email:        req.Email,
		FullName:     req.FullName,
		Role:         req.Role,
		UniversityID: req.UniversityID,
		Password:     req.Password,
	})
	if err != nil {
		return nil, err
	}
	recordEvent(ctx, s.audit, created, audit.ActionRegister, audit.OutcomeSuccess, nil)

	// The account exists from here on; mail problems only change the reported status.
	result := &ports.DispatchResult{User: created, MailSent: true}
	if err := s.Dispatch(ctx, created); err != nil {
		result.MailSent = false
		result.MailErr = err
	}
	return result, nil
}

func (s *VerificationService) verificationLink(u *user.User) (string, error) {
	token, err := s.tokens.Mint(u, auth.PurposeEmailVerification)
	if err != nil {
		return "", fmt.Errorf("failed to mint verification token: %w", err)
	}
	return fmt.Sprintf("%s/api/users/verify-email/%s/%s/", s.cfg.BaseURL, s.tokens.EncodeUID(u.ID), token), nil
}

func (s *VerificationService) Dispatch(ctx context.Context, u *user.User) error {
	link, err := s.verificationLink(u)
	if err != nil {
		return err
	}
	if err := s.mailer.SendVerificationEmail(ctx, u, link); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"user_id": u.ID}).WithError(err).Warn("failed to send verification email")
		}
		return err
	}
	return nil
}

// Confirm verifies the account named by uid. A token that was already used no
// longer matches the user's state, so a repeat call reports it as invalid.
func (s *VerificationService) Confirm(ctx context.Context, uid, token string) (*user.User, error) {
	id, err := s.tokens.DecodeUID(uid)
	if err != nil {
		recordEvent(ctx, s.audit, nil, audit.ActionVerifyEmail, audit.OutcomeFailure, nil)
		return nil, err
	}
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		recordEvent(ctx, s.audit, nil, audit.ActionVerifyEmail, audit.OutcomeFailure, nil)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrTokenInvalid
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	if err := s.tokens.Check(u, auth.PurposeEmailVerification, token); err != nil {
		recordEvent(ctx, s.audit, u, audit.ActionVerifyEmail, audit.OutcomeFailure, nil)
		return nil, err
	}

	verified, err := s.users.MarkEmailVerified(ctx, u)
	if err != nil {
		return nil, apperr.Internal("failed to mark email verified", err)
	}
	recordEvent(ctx, s.audit, verified, audit.ActionVerifyEmail, audit.OutcomeSuccess, nil)
	return verified, nil
}

func (s *VerificationService) Resend(ctx context.Context, email string) (*ports.DispatchResult, error) {
	email = utils.NormalizeEmail(email)
	if s.mailLimiter != nil {
		decision, err := s.mailLimiter.Allow(ctx, "verification:"+email)
		if err == nil && !decision.Allowed {
			recordEvent(ctx, s.audit, nil, audit.ActionResendEmail, audit.OutcomeFailure, map[string]string{"reason": "rate_limited"})
			return nil, apperr.ErrRateLimited
		}
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal("failed to load user", err)
	}
	if u == nil {
		return nil, apperr.ErrUserNotFound
	}
	if u.IsEmailVerified {
		return nil, apperr.ErrAlreadyVerified
	}

	result := &ports.DispatchResult{User: u, MailSent: true}
	if err := s.Dispatch(ctx, u); err != nil {
		result.MailSent = false
		result.MailErr = err
		recordEvent(ctx, s.audit, u, audit.ActionResendEmail, audit.OutcomeFailure, map[string]string{"reason": "mail_delivery"})
		return result, nil
	}
	recordEvent(ctx, s.audit, u, audit.ActionResendEmail, audit.OutcomeSuccess, nil)
	return result, nil
}
