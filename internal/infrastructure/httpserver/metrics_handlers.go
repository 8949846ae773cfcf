package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	customMiddleware "github.com/unibazzar/marketplace-api/internal/infrastructure/httpserver/middleware"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unibazzar",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "unibazzar",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	requestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "unibazzar",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Requests currently being served.",
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, requestsInFlight)
}

func httpMetrics() customMiddleware.HTTPMetrics {
	return customMiddleware.HTTPMetrics{
		Requests: requestsTotal,
		Duration: requestDuration,
		InFlight: requestsInFlight,
	}
}

var metricsHandler = echo.WrapHandler(promhttp.Handler())

func (s *Server) metricsEndpoint(c echo.Context) error {
	return metricsHandler(c)
}
