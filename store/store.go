// Package store provides counter storage backends for rate limiting.
package store

import (
	"context"
	"time"
)

// Store defines the interface for rate limit counter storage backends.
// Implementations must be safe for concurrent use.
type Store interface {
	// Increment increments the counter for the given key and returns the new
	// count, the TTL until the window resets, and any error.
	// Every access pushes the counter's expiry out to the full window
	// (approximate sliding behavior). A key that has expired or was evicted
	// is treated as absent and restarts at 1.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)

	// Get retrieves the current count for the given key without incrementing.
	// Returns 0 if the key doesn't exist.
	Get(ctx context.Context, key string) (int64, error)

	// Reset removes the counter for the given key.
	Reset(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}
