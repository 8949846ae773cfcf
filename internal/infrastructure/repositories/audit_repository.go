package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/unibazzar/marketplace-api/internal/core/domain/audit"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
	"github.com/unibazzar/marketplace-api/internal/infrastructure/db"
)

const auditColumns = `id, user_id, action, outcome, details, ip_address, user_agent, timestamp`

// auditRow is the scan target for audit_logs; details stays raw JSONB until decoded.
type auditRow struct {
	ID        uuid.UUID  `db:"id"`
	UserID    *uuid.UUID `db:"user_id"`
	Action    string     `db:"action"`
	Outcome   string     `db:"outcome"`
	Details   []byte     `db:"details"`
	IPAddress string     `db:"ip_address"`
	UserAgent string     `db:"user_agent"`
	Timestamp time.Time  `db:"timestamp"`
}

func (row *auditRow) toDomain() *audit.AuditLog {
	entry := &audit.AuditLog{
		ID:        row.ID,
		UserID:    row.UserID,
		Action:    row.Action,
		Outcome:   row.Outcome,
		IPAddress: row.IPAddress,
		UserAgent: row.UserAgent,
		Timestamp: row.Timestamp,
	}
	if len(row.Details) > 0 {
		var details any
		if err := json.Unmarshal(row.Details, &details); err == nil {
			entry.Details = details
		}
	}
	return entry
}

type auditRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewAuditRepository stores the auth event trail in Postgres.
func NewAuditRepository(database *db.Database, logger *logrus.Logger) ports.AuditRepository {
	return &auditRepository{db: database, logger: logger}
}

func (r *auditRepository) Create(ctx context.Context, entry *audit.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	var details []byte
	if entry.Details != nil {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		details = b
	}

	query := `INSERT INTO audit_logs (` + auditColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.DB.ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.Action, entry.Outcome, details,
		entry.IPAddress, entry.UserAgent, entry.Timestamp)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"user_id": entry.UserID, "action": entry.Action}).WithError(err).Error("db: failed to insert audit log")
		}
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// List returns matching entries newest first.
func (r *auditRepository) List(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, error) {
	where, args := auditWhere(filter)
	query := `SELECT ` + auditColumns + ` FROM audit_logs` + where + ` ORDER BY timestamp DESC`
	if filter != nil && filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if filter != nil && filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	var rows []auditRow
	if err := r.db.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		if r.logger != nil {
			r.logger.WithError(err).Error("db: failed to list audit logs")
		}
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}

	logs := make([]*audit.AuditLog, 0, len(rows))
	for i := range rows {
		logs = append(logs, rows[i].toDomain())
	}
	return logs, nil
}

func (r *auditRepository) Count(ctx context.Context, filter *audit.AuditLogFilter) (int, error) {
	where, args := auditWhere(filter)
	var count int
	if err := r.db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM audit_logs`+where, args...); err != nil {
		return 0, fmt.Errorf("failed to count audit logs: %w", err)
	}
	return count, nil
}

func auditWhere(filter *audit.AuditLogFilter) (string, []any) {
	if filter == nil {
		return "", nil
	}
	var conditions []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conditions = append(conditions, cond+" $"+strconv.Itoa(len(args)))
	}
	if filter.UserID != nil {
		add("user_id =", *filter.UserID)
	}
	if filter.Action != nil {
		add("action =", string(*filter.Action))
	}
	if filter.StartTime != nil {
		add("timestamp >=", *filter.StartTime)
	}
	if filter.EndTime != nil {
		add("timestamp <=", *filter.EndTime)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
