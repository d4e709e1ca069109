// Package cache provides small key/value stores for state that should
// survive a restart, such as the last good weather observation.
//
// Three backends share the [Cache] interface:
//
//   - [FileCache]: JSON entries under ~/.cache/pixclock/ (default)
//   - [RedisCache]: a Redis server, for setups that already run one
//   - [NullCache]: stores nothing
//
// Values are opaque bytes; callers own the encoding. Entries carry an
// optional TTL after which Get reports a miss.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-valued key/value store with per-entry expiry.
type Cache interface {
	// Get returns the stored value and true, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// Key joins a namespace and a name into a cache key ("weather:37.57,126.98").
func Key(namespace, name string) string {
	return namespace + ":" + name
}
