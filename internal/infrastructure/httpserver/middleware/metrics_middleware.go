package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics are the collectors fed by CollectHTTPMetrics. InFlight is optional.
type HTTPMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

type MetricsMiddleware struct {
	metrics HTTPMetrics
}

func NewMetricsMiddleware(metrics HTTPMetrics) *MetricsMiddleware {
	return &MetricsMiddleware{metrics: metrics}
}

// CollectHTTPMetrics records one sample per request, labelled by route
// template rather than raw path.
func (m *MetricsMiddleware) CollectHTTPMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.metrics.InFlight != nil {
				m.metrics.InFlight.Inc()
				defer m.metrics.InFlight.Dec()
			}
			start := time.Now()

			// Render errors here so the recorded status is the one sent.
			if err := next(c); err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.metrics.Requests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			m.metrics.Duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
