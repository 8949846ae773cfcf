package middleware

import (
	"github.com/sirupsen/logrus"

	"github.com/unibazzar/marketplace-api/internal/core/ports"
)

// MiddlewareCollection groups the middleware the router installs.
type MiddlewareCollection struct {
	JWT       *JWTMiddleware
	Logging   *LoggingMiddleware
	RateLimit *RateLimitMiddleware
	Metrics   *MetricsMiddleware
}

// NewMiddlewareCollection builds every middleware from the shared dependencies.
// rateLimiter may be nil to disable per-IP limiting.
func NewMiddlewareCollection(authService ports.AuthService, rateLimiter ports.RateLimiter, logger *logrus.Logger, metrics HTTPMetrics) *MiddlewareCollection {
	return &MiddlewareCollection{
		JWT:       NewJWTMiddleware(authService, logger),
		Logging:   NewLoggingMiddleware(logger),
		RateLimit: NewRateLimitMiddleware(rateLimiter, logger),
		Metrics:   NewMetricsMiddleware(metrics),
	}
}
