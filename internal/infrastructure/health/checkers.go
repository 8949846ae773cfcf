package health

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/unibazzar/marketplace-api/internal/core/ports"
	"github.com/unibazzar/marketplace-api/internal/infrastructure/db"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// dbHealthChecker reports whether Postgres answers a ping.
type dbHealthChecker struct{ db pinger }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.Ping(ctx) }

// redisHealthChecker reports whether the blacklist and rate limit store answers.
type redisHealthChecker struct{ client redis.Cmdable }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(database *db.Database) ports.HealthChecker {
	return &dbHealthChecker{db: database}
}

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client redis.Cmdable) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}
