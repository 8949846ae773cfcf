package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unibazzar/marketplace-api/internal/core/domain/audit"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
)

type AuditService struct {
	repo   ports.AuditRepository
	logger *logrus.Logger
}

func NewAuditService(repo ports.AuditRepository, logger *logrus.Logger) ports.AuditService {
	return &AuditService{
		repo:   repo,
		logger: logger,
	}
}

type requestMetaKey struct{}

// RequestMeta is the client information attached to audit rows.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// WithRequestMeta attaches client metadata for audit entries written further down the call.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func requestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

// LogAction persists an audit entry. Failures are logged and swallowed.
func (s *AuditService) LogAction(ctx context.Context, req *audit.CreateAuditLogRequest) {
	if s == nil || s.repo == nil {
		return
	}
	meta := requestMetaFrom(ctx)
	if req.IPAddress == "" {
		req.IPAddress = meta.IPAddress
	}
	if req.UserAgent == "" {
		req.UserAgent = meta.UserAgent
	}
	outcome := req.Outcome
	if outcome == "" {
		outcome = audit.OutcomeSuccess
	}

	auditLog := &audit.AuditLog{
		UserID:    req.UserID,
		Action:    string(req.Action),
		Outcome:   string(outcome),
		Timestamp: time.Now(),
		Details:   req.Details,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
	}

	if err := s.repo.Create(ctx, auditLog); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"user_id": req.UserID, "action": req.Action}).WithError(err).Error("failed to persist audit log")
		}
		return
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": req.UserID, "action": req.Action, "outcome": outcome}).Debug("audit log persisted")
	}
}

func (s *AuditService) GetAuditLogs(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, int, error) {
	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

// recordEvent counts an auth event and, when auditing is wired, persists it.
func recordEvent(ctx context.Context, svc ports.AuditService, u *user.User, action audit.AuditAction, outcome audit.Outcome, details any) {
	countEvent(string(action), string(outcome))
	if svc == nil {
		return
	}
	req := &audit.CreateAuditLogRequest{Action: action, Outcome: outcome, Details: details}
	if u != nil {
		id := u.ID
		req.UserID = &id
	}
	svc.LogAction(ctx, req)
}
