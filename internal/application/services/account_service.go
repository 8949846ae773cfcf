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

type AccountService struct {
	users        ports.UserService
	sessions     ports.SessionTokenService
	actionTokens ports.ActionTokenService
	verification ports.VerificationService
	mailer       ports.Mailer
	mailLimiter  ports.RateLimiter
	audit        ports.AuditService
	cfg          *configs.VerificationConfig
	logger       *logrus.Logger
}

// AccountDeps groups AccountService collaborators.
type AccountDeps struct {
	Users        ports.UserService
	Sessions     ports.SessionTokenService
	ActionTokens ports.ActionTokenService
	Verification ports.VerificationService
	Mailer       ports.Mailer
	MailLimiter  ports.RateLimiter
	Audit        ports.AuditService
}

func NewAccountService(deps AccountDeps, cfg *configs.VerificationConfig, logger *logrus.Logger) ports.AccountService {
	return &AccountService{
		users:        deps.Users,
		sessions:     deps.Sessions,
		actionTokens: deps.ActionTokens,
		verification: deps.Verification,
		mailer:       deps.Mailer,
		mailLimiter:  deps.MailLimiter,
		audit:        deps.Audit,
		cfg:          cfg,
		logger:       logger,
	}
}

func (s *AccountService) UpdateProfile(ctx context.Context, u *user.User, req *user.UpdateProfileRequest) (*user.User, error) {
	updated, err := s.users.UpdateProfile(ctx, u, req)
	if err != nil {
		return nil, err
	}
	recordEvent(ctx, s.audit, updated, audit.ActionProfileUpdate, audit.OutcomeSuccess, nil)
	return updated, nil
}

// checkNewPassword applies the confirmation and strength rules shared by
// password change and password reset.
func (s *AccountService) checkNewPassword(password, confirm, passwordField, confirmField string) error {
	if password != confirm {
		return apperr.ErrPasswordMismatch.WithField(confirmField, apperr.ErrPasswordMismatch.Message)
	}
	if err := s.users.CheckPasswordStrength(password); err != nil {
		if ae, ok := apperr.As(err); ok {
			return ae.RenameField("password", passwordField)
		}
		return err
	}
	return nil
}

func (s *AccountService) revokeSessions(ctx context.Context, u *user.User) {
	n, err := s.sessions.RevokeAllForUser(ctx, u.ID, auth.ReasonPasswordChange)
	if s.logger == nil {
		return
	}
	if err != nil {
		s.logger.WithFields(logrus.Fields{"user_id": u.ID}).WithError(err).Warn("failed to revoke sessions after password change")
		return
	}
	s.logger.WithFields(logrus.Fields{"user_id": u.ID, "revoked": n}).Info("sessions revoked after password change")
}

func (s *AccountService) ChangePassword(ctx context.Context, u *user.User, req *user.ChangePasswordRequest) error {
	if err := s.checkNewPassword(req.NewPassword, req.ConfirmNewPassword, "new_password", "confirm_new_password"); err != nil {
		recordEvent(ctx, s.audit, u, audit.ActionPasswordChange, audit.OutcomeFailure, nil)
		return err
	}
	if !s.users.VerifyPassword(u, req.CurrentPassword) {
		recordEvent(ctx, s.audit, u, audit.ActionPasswordChange, audit.OutcomeFailure, map[string]string{"reason": "wrong_current_password"})
		return apperr.ErrWrongCurrentPassword.WithField("current_password", apperr.ErrWrongCurrentPassword.Message)
	}
	updated, err := s.users.SetPassword(ctx, u, req.NewPassword)
	if err != nil {
		return err
	}
	s.revokeSessions(ctx, updated)
	recordEvent(ctx, s.audit, updated, audit.ActionPasswordChange, audit.OutcomeSuccess, nil)
	return nil
}

func (s *AccountService) ChangeEmail(ctx context.Context, u *user.User, newEmail string) (*ports.DispatchResult, error) {
	updated, err := s.users.SetEmail(ctx, u, newEmail)
	if err != nil {
		return nil, err
	}
	recordEvent(ctx, s.audit, updated, audit.ActionEmailChange, audit.OutcomeSuccess, nil)

	result := &ports.DispatchResult{User: updated, MailSent: true}
	if err := s.verification.Dispatch(ctx, updated); err != nil {
		result.MailSent = false
		result.MailErr = err
	}
	return result, nil
}

func (s *AccountService) ChangePhone(ctx context.Context, u *user.User, phone string) (*user.User, error) {
	updated, err := s.users.SetPhone(ctx, u, phone)
	if err != nil {
		return nil, err
	}
	recordEvent(ctx, s.audit, updated, audit.ActionPhoneChange, audit.OutcomeSuccess, nil)
	return updated, nil
}

// RequestPasswordReset mails a reset link. Unknown addresses are not reported
// so the endpoint cannot be used to probe for accounts.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	if s.mailLimiter != nil {
		decision, err := s.mailLimiter.Allow(ctx, "password_reset:"+email)
		if err == nil && !decision.Allowed {
			return apperr.ErrRateLimited
		}
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return apperr.Internal("failed to load user", err)
	}
	if u == nil || !u.IsActive {
		return nil
	}

	token, err := s.actionTokens.Mint(u, auth.PurposePasswordReset)
	if err != nil {
		return apperr.Internal("failed to mint reset token", err)
	}
	link := fmt.Sprintf("%s/reset-password/%s/%s", s.cfg.FrontendURL, s.actionTokens.EncodeUID(u.ID), token)
	if err := s.mailer.SendPasswordResetEmail(ctx, u, link); err != nil && s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": u.ID}).WithError(err).Warn("failed to send password reset email")
	}
	recordEvent(ctx, s.audit, u, audit.ActionResetRequested, audit.OutcomeSuccess, nil)
	return nil
}

func (s *AccountService) ConfirmPasswordReset(ctx context.Context, req *user.PasswordResetConfirmRequest) error {
	id, err := s.actionTokens.DecodeUID(req.UID)
	if err != nil {
		return err
	}
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ErrTokenInvalid
		}
		return apperr.Internal("failed to load user", err)
	}
	if err := s.actionTokens.Check(u, auth.PurposePasswordReset, req.Token); err != nil {
		recordEvent(ctx, s.audit, u, audit.ActionPasswordReset, audit.OutcomeFailure, nil)
		return err
	}
	if err := s.checkNewPassword(req.Password, req.ConfirmPassword, "password", "confirm_password"); err != nil {
		return err
	}
	updated, err := s.users.SetPassword(ctx, u, req.Password)
	if err != nil {
		return err
	}
	s.revokeSessions(ctx, updated)
	recordEvent(ctx, s.audit, updated, audit.ActionPasswordReset, audit.OutcomeSuccess, nil)
	return nil
}
