package ports

import "context"

// HealthChecker probes one backing dependency (database, cache).
// Check returns nil when the dependency is reachable.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
