package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/unibazzar/marketplace-api/internal/core/domain/auth"
	"github.com/unibazzar/marketplace-api/internal/infrastructure/db"
)

// TokenDBRepository is the durable record of issued refresh tokens and
// revoked jtis.
type TokenDBRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewTokenDBRepository creates a new token repository
func NewTokenDBRepository(database *db.Database, logger *logrus.Logger) *TokenDBRepository {
	return &TokenDBRepository{db: database, logger: logger}
}

func (r *TokenDBRepository) recordOutstanding(ctx context.Context, t *auth.OutstandingToken) error {
	query := `
		INSERT INTO outstanding_tokens (jti, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`

	if _, err := r.db.DB.ExecContext(ctx, query, t.JTI, t.UserID, t.ExpiresAt, t.CreatedAt); err != nil {
		return fmt.Errorf("failed to store outstanding token: %w", err)
	}
	return nil
}

func (r *TokenDBRepository) listOutstanding(ctx context.Context, userID uuid.UUID) ([]*auth.OutstandingToken, error) {
	tokens := []*auth.OutstandingToken{}
	query := `
		SELECT jti, user_id, expires_at, created_at
		FROM outstanding_tokens
		WHERE user_id = $1 AND expires_at > NOW()
		ORDER BY created_at`

	if err := r.db.DB.SelectContext(ctx, &tokens, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list outstanding tokens: %w", err)
	}
	return tokens, nil
}

// blacklist inserts the entry unless the jti is already present. The returned
// flag is true only for the caller whose row landed.
func (r *TokenDBRepository) blacklist(ctx context.Context, e *auth.BlacklistEntry) (bool, error) {
	query := `
		INSERT INTO blacklisted_tokens (jti, user_id, expires_at, blacklisted_at, reason)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (jti) DO NOTHING`

	result, err := r.db.DB.ExecContext(ctx, query, e.JTI, e.UserID, e.ExpiresAt, e.BlacklistedAt, e.Reason)
	if err != nil {
		return false, fmt.Errorf("failed to blacklist token: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *TokenDBRepository) isBlacklisted(ctx context.Context, jti string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM blacklisted_tokens WHERE jti = $1)`

	if err := r.db.DB.GetContext(ctx, &exists, query, jti); err != nil {
		return false, fmt.Errorf("failed to check if token is blacklisted: %w", err)
	}
	return exists, nil
}

// deleteExpired removes outstanding and blacklisted rows past their expiry.
func (r *TokenDBRepository) deleteExpired(ctx context.Context) (int64, error) {
	var total int64
	for _, table := range []string{"outstanding_tokens", "blacklisted_tokens"} {
		result, err := r.db.DB.ExecContext(ctx, `DELETE FROM `+table+` WHERE expires_at <= NOW()`)
		if err != nil {
			return total, fmt.Errorf("failed to delete expired %s: %w", table, err)
		}
		rows, _ := result.RowsAffected()
		if rows > 0 && r.logger != nil {
			r.logger.WithFields(logrus.Fields{"table": table, "rows": rows}).Debug("db: pruned expired tokens")
		}
		total += rows
	}
	return total, nil
}
