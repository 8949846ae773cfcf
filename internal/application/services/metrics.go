package services

import "github.com/prometheus/client_golang/prometheus"

var authEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_events_total",
		Help: "Authentication lifecycle events by outcome",
	},
	[]string{"event", "outcome"},
)

func init() {
	prometheus.MustRegister(authEvents)
}

func countEvent(event, outcome string) {
	authEvents.WithLabelValues(event, outcome).Inc()
}
