package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unibazzar/marketplace-api/internal/core/ports"
)

// RateLimiterService applies one fixed-window budget to arbitrary keys.
type RateLimiterService struct {
	repo      ports.RateLimitRepository
	limit     int
	window    time.Duration
	keyPrefix string
	failOpen  bool
	logger    *logrus.Logger
}

// RateLimiterConfig groups configuration parameters for the rate limiter.
type RateLimiterConfig struct {
	Limit     int
	Window    time.Duration
	KeyPrefix string
	// FailOpen admits requests when the counter store is unavailable.
	FailOpen bool
}

func NewRateLimiterService(repo ports.RateLimitRepository, cfg *RateLimiterConfig, logger *logrus.Logger) ports.RateLimiter {
	// Apply defaults
	limit := 30
	w := time.Minute
	kp := "ratelimit"
	failOpen := true
	if cfg != nil {
		if cfg.Limit > 0 {
			limit = cfg.Limit
		}
		if cfg.Window > 0 {
			w = cfg.Window
		}
		if cfg.KeyPrefix != "" {
			kp = cfg.KeyPrefix
		}
		failOpen = cfg.FailOpen
	}
	return &RateLimiterService{repo: repo, limit: limit, window: w, keyPrefix: kp, failOpen: failOpen, logger: logger}
}

func (s *RateLimiterService) Allow(ctx context.Context, key string) (*ports.RateLimitDecision, error) {
	ttl := s.window * 2 // retain overlap window
	count, windowStart, err := s.repo.IncrementWindow(ctx, s.keyPrefix+":"+key, s.window, ttl)
	reset := windowStart.Add(s.window)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"prefix": s.keyPrefix}).WithError(err).Error("rate limiter: failed to increment window")
		}
		return &ports.RateLimitDecision{Allowed: s.failOpen, Remaining: s.limit, Limit: s.limit, Reset: reset}, err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"prefix": s.keyPrefix, "count": count, "limit": s.limit}).Debug("rate limiter window state")
	}
	if count > s.limit {
		return &ports.RateLimitDecision{Allowed: false, Remaining: 0, Limit: s.limit, Reset: reset}, nil
	}
	return &ports.RateLimitDecision{Allowed: true, Remaining: s.limit - count, Limit: s.limit, Reset: reset}, nil
}
