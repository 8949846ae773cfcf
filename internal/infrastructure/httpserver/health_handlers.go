package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

const healthProbeTimeout = 2 * time.Second

type dependencyStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
}

// probeDependencies runs every checker concurrently under one deadline.
func (s *Server) probeDependencies(ctx context.Context) map[string]dependencyStatus {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	var mu sync.Mutex
	out := make(map[string]dependencyStatus, len(s.healthCheckers))
	var g errgroup.Group
	for _, hc := range s.healthCheckers {
		if hc == nil {
			continue
		}
		hc := hc
		g.Go(func() error {
			start := time.Now()
			err := hc.Check(ctx)
			st := dependencyStatus{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				st.Status = "unhealthy"
				if s.logger != nil {
					s.logger.WithField("dependency", hc.Name()).WithError(err).Warn("health check failed")
				}
			}
			mu.Lock()
			out[hc.Name()] = st
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Server) healthCheck(c echo.Context) error {
	deps := s.probeDependencies(c.Request().Context())

	overall := "healthy"
	summary := make(map[string]string, len(deps))
	latency := make(map[string]int64, len(deps))
	for name, st := range deps {
		summary[name] = st.Status
		latency[name] = st.LatencyMS
		if st.Status != "healthy" {
			overall = "degraded"
		}
	}

	code := http.StatusOK
	if overall != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]any{
		"status":       overall,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"service":      "unibazzar-api",
		"environment":  s.config.Environment,
		"dependencies": summary,
		"latency_ms":   latency,
	})
}
