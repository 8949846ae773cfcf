package ports

import (
	"context"
	"time"
)

// Cache holds serialized read models (users by id and email, the university
// directory). A miss is (nil, false, nil); errors are reported but callers
// treat them as misses and read through to Postgres.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set with ttl <= 0 stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete of an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
