// Package storage defines the shared key/value store behind rate limiting,
// the panel session cache and other cross-request state. Production deployments
// back it with Redis; without Redis an in-memory store keeps a single warm
// instance working.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("storage: key not found")

// Store is a minimal expiring key/value contract: everything the service
// shares between requests goes through it.
type Store interface {
	// Get returns the raw value for key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set writes value with an optional TTL (0 means no expiry).
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Del removes key; deleting a missing key is not an error.
	Del(ctx context.Context, key string) error
	// Incr atomically increments the integer at key, creating it at 1.
	Incr(ctx context.Context, key string) (int64, error)
	// Expire sets the TTL of an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL returns the remaining lifetime, or a negative duration when the key
	// has no expiry or does not exist.
	TTL(ctx context.Context, key string) (time.Duration, error)
}
