package ports

import (
	"context"

	"github.com/unibazzar/marketplace-api/internal/core/domain/audit"
)

// AuditRepository defines the interface for audit log data operations
type AuditRepository interface {
	Create(ctx context.Context, log *audit.AuditLog) error
	List(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, error)
	Count(ctx context.Context, filter *audit.AuditLogFilter) (int, error)
}

// AuditService records auth events. LogAction never fails the caller's flow.
type AuditService interface {
	LogAction(ctx context.Context, req *audit.CreateAuditLogRequest)
	GetAuditLogs(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, int, error)
}
