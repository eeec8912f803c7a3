// Package cache provides the byte-level cache used for platform API
// responses, volume manifests, and rendered graph exports.
//
// Three backends implement the same interface: FileCache for CLI usage,
// RedisCache for the serve mode, and NullCache to disable caching. Keyers
// generate stable, collision-resistant keys for the things channelkit
// caches.
package cache

import (
	"context"
	"time"

	"github.com/channelkit/channelkit/pkg/errors"
)

// Cache is the backend-agnostic cache interface. Implementations must be
// safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present and unexpired; a miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL. A zero TTL stores forever; a
	// negative TTL means already expired, so the entry is never readable.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Backend names accepted by Open and the cache.backend config key.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendOff   = "off"
)

// Open constructs a cache for the configured backend. dir is the FileCache
// directory; addr is the Redis address.
func Open(backend, dir, addr string) (Cache, error) {
	switch backend {
	case BackendFile:
		return NewFileCache(dir)
	case BackendRedis:
		return NewRedisCache(addr), nil
	case BackendOff:
		return NewNullCache(), nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q", backend)
}
