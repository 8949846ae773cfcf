package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const blacklistPrefix = "auth:blacklist"

// TokenRedisRepository mirrors the jti blacklist in Redis so request-path
// checks rarely reach Postgres. Keys expire with the token they revoke.
type TokenRedisRepository struct {
	client redis.Cmdable
	logger *logrus.Logger
	now    func() time.Time
}

// NewTokenRedisRepository creates a new Redis token repository
func NewTokenRedisRepository(client redis.Cmdable, logger *logrus.Logger) *TokenRedisRepository {
	return &TokenRedisRepository{client: client, logger: logger, now: time.Now}
}

func blacklistKey(jti string) string {
	return fmt.Sprintf("%s:%s", blacklistPrefix, jti)
}

func (r *TokenRedisRepository) markBlacklisted(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, blacklistKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache blacklisted token: %w", err)
	}
	return nil
}

// isBlacklisted reports hit=true only when Redis holds the key. A miss is not
// authoritative: the key may have been evicted or never mirrored.
func (r *TokenRedisRepository) isBlacklisted(ctx context.Context, jti string) (bool, error) {
	err := r.client.Get(ctx, blacklistKey(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read blacklist cache: %w", err)
	}
	return true, nil
}
