package cache

import (
	"context"
	"time"
)

// NullCache discards every write and misses every read. It backs the "off"
// backend and flags like graphs export --no-cache, letting callers hold a
// Cache without branching on whether caching is enabled.
type NullCache struct{}

// NewNullCache creates the no-op cache.
func NewNullCache() Cache {
	return &NullCache{}
}

// Get always misses.
func (c *NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set discards the data.
func (c *NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

// Delete does nothing.
func (c *NullCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Close does nothing.
func (c *NullCache) Close() error {
	return nil
}

var _ Cache = (*NullCache)(nil)
