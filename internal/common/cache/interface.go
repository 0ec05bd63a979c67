// Package cache provides the cache abstraction shared by judge components.
package cache

import (
	"context"
	"time"
)

// Cache defines the key-value operations the judge service depends on.
// Keeping it small lets tests swap in miniredis or in-memory fakes.
type Cache interface {
	// Get retrieves the value for the given key; empty string when missing.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a key-value pair with optional TTL (0 means no expiry).
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// SetNX sets the value only if the key does not exist.
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	// Del deletes one or more keys.
	Del(ctx context.Context, keys ...string) error

	// Exists returns the number of keys that exist.
	Exists(ctx context.Context, keys ...string) (int64, error)

	// Ping verifies the cache connection is alive.
	Ping(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}
