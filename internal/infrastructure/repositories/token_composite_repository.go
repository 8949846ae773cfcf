package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/unibazzar/marketplace-api/internal/core/domain/auth"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
)

// TokenRepository combines Postgres, which is authoritative for outstanding
// and blacklisted tokens, with a Redis mirror of the blacklist.
type TokenRepository struct {
	dbRepo    *TokenDBRepository
	redisRepo *TokenRedisRepository
	logger    *logrus.Logger
}

// NewTokenRepository wires the composite. redisRepo may be nil.
func NewTokenRepository(dbRepo *TokenDBRepository, redisRepo *TokenRedisRepository, logger *logrus.Logger) ports.TokenRepository {
	return &TokenRepository{dbRepo: dbRepo, redisRepo: redisRepo, logger: logger}
}

func (r *TokenRepository) RecordOutstanding(ctx context.Context, t *auth.OutstandingToken) error {
	return r.dbRepo.recordOutstanding(ctx, t)
}

func (r *TokenRepository) ListOutstanding(ctx context.Context, userID uuid.UUID) ([]*auth.OutstandingToken, error) {
	return r.dbRepo.listOutstanding(ctx, userID)
}

// Blacklist writes through to Postgres first; the Redis mirror is best-effort.
func (r *TokenRepository) Blacklist(ctx context.Context, e *auth.BlacklistEntry) (bool, error) {
	inserted, err := r.dbRepo.blacklist(ctx, e)
	if err != nil {
		return false, err
	}
	if r.redisRepo != nil {
		if err := r.redisRepo.markBlacklisted(ctx, e.JTI, e.ExpiresAt); err != nil && r.logger != nil {
			r.logger.WithFields(logrus.Fields{"jti": e.JTI}).WithError(err).Warn("redis: failed to mirror blacklisted token")
		}
	}
	return inserted, nil
}

func (r *TokenRepository) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if r.redisRepo != nil {
		hit, err := r.redisRepo.isBlacklisted(ctx, jti)
		if err == nil && hit {
			return true, nil
		}
		if err != nil && r.logger != nil {
			r.logger.WithFields(logrus.Fields{"jti": jti}).WithError(err).Warn("redis: blacklist lookup failed, falling back to db")
		}
	}
	return r.dbRepo.isBlacklisted(ctx, jti)
}

func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	return r.dbRepo.deleteExpired(ctx)
}
