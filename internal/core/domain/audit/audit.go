package audit

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    *uuid.UUID `json:"user_id" db:"user_id"`
	Action    string     `json:"action" db:"action"`
	Outcome   string     `json:"outcome" db:"outcome"`
	Details   any        `json:"details" db:"details"`
	IPAddress string     `json:"ip_address" db:"ip_address"`
	UserAgent string     `json:"user_agent" db:"user_agent"`
	Timestamp time.Time  `json:"timestamp" db:"timestamp"`
}

type AuditAction string

const (
	ActionRegister       AuditAction = "register"
	ActionVerifyEmail    AuditAction = "verify_email"
	ActionResendEmail    AuditAction = "resend_verification"
	ActionLogin          AuditAction = "login"
	ActionLogout         AuditAction = "logout"
	ActionRefresh        AuditAction = "token_refresh"
	ActionProfileUpdate  AuditAction = "profile_update"
	ActionPasswordChange AuditAction = "password_change"
	ActionEmailChange    AuditAction = "email_change"
	ActionPhoneChange    AuditAction = "phone_change"
	ActionPasswordReset  AuditAction = "password_reset"
	ActionResetRequested AuditAction = "password_reset_requested"
	ActionResourceCreate AuditAction = "resource_create"
	ActionResourceUpdate AuditAction = "resource_update"
	ActionResourceDelete AuditAction = "resource_delete"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// CreateAuditLogRequest represents the request to create an audit log entry
type CreateAuditLogRequest struct {
	UserID    *uuid.UUID  `json:"user_id,omitempty"`
	Action    AuditAction `json:"action"`
	Outcome   Outcome     `json:"outcome"`
	Details   any         `json:"details,omitempty"`
	IPAddress string      `json:"ip_address"`
	UserAgent string      `json:"user_agent"`
}

// AuditLogFilter represents filters for querying audit logs
type AuditLogFilter struct {
	UserID    *uuid.UUID   `json:"user_id,omitempty"`
	Action    *AuditAction `json:"action,omitempty"`
	StartTime *time.Time   `json:"start_time,omitempty"`
	EndTime   *time.Time   `json:"end_time,omitempty"`
	Limit     int          `json:"limit"`
	Offset    int          `json:"offset"`
}
