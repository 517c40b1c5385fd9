package cache

import (
	"context"
	"time"
)

// Provider is the cache abstraction shared by the flash store and the
// thumbnail memoization.
type Provider interface {
	// Set stores a value under key with the given expiration.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Get loads the value for key into dest. Returns ErrCacheMiss when
	// the key is absent.
	Get(ctx context.Context, key string, dest interface{}) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Exists checks whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases the backend.
	Close() error

	// Name returns the provider name.
	Name() string
}

// ErrCacheMiss signals an absent key.
var ErrCacheMiss = &cacheMissError{}

type cacheMissError struct{}

func (e *cacheMissError) Error() string {
	return "cache miss"
}

// IsCacheMiss reports whether err is a cache miss.
func IsCacheMiss(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*cacheMissError)
	return ok
}
