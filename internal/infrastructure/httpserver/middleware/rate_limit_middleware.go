package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
)

// RateLimitMiddleware applies a per-client-IP budget to anonymous endpoints.
type RateLimitMiddleware struct {
	rateLimiter ports.RateLimiter
	logger      *logrus.Logger
}

func NewRateLimitMiddleware(rateLimiter ports.RateLimiter, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter, logger: logger}
}

func (r *RateLimitMiddleware) PerIP() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if r.rateLimiter == nil {
				return next(c)
			}
			ip := c.RealIP()
			decision, rlErr := r.rateLimiter.Allow(c.Request().Context(), "ip:"+ip)
			if decision != nil {
				h := c.Response().Header()
				h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
				h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
				h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))
			}

			if rlErr != nil {
				if r.logger != nil {
					r.logger.WithError(rlErr).WithField("ip", ip).Warn("rate limiter error; allowing request (fail-open)")
				}
				if decision == nil || decision.Allowed {
					return next(c)
				}
			}

			if decision != nil && !decision.Allowed {
				return apperr.ErrRateLimited
			}
			return next(c)
		}
	}
}
