package ports

import (
	"context"
	"time"
)

// Cache is a short-lived, advisory cache: a miss or an outage only costs a
// recompute, never correctness.
type Cache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Get returns the cached value, or "" on a miss.
	Get(ctx context.Context, key string) (string, error)

	Delete(ctx context.Context, keys ...string) error

	// SetNX claims key for the given TTL; false means someone already holds
	// it. Used to deduplicate gateway webhook deliveries.
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Key builds a namespaced cache key from its parts.
	Key(parts ...string) string
}
