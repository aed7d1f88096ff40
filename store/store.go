// Package store exposes the shared state store the request pipeline
// coordinates through. The pipeline treats it as a capability with four
// operations; Redis is the backing implementation.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get when the key is absent.
var ErrKeyNotFound = errors.New("key not found")

// ErrUnavailable is returned when the store cannot be reached, either
// because the operation failed or because the circuit breaker is open.
var ErrUnavailable = errors.New("state store unavailable")

// Store is the narrow interface every pipeline stage shares. All operations
// are network round trips with a bounded timeout.
type Store interface {
	// Get retrieves the value for the given key, ErrKeyNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the value under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// IncrWithExpiry atomically increments the counter at key, setting its
	// expiry to ttl if this is the first increment of the key's lifetime.
	// It returns the new count and the time remaining until the key expires,
	// obtained in the same round trip.
	IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error)

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying connection pool.
	Close() error
}

// IsNotFound reports whether err is a key-absence result rather than a
// store failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// IsUnavailable reports whether err indicates the store could not be
// reached, as opposed to a successful round trip with a negative answer.
func IsUnavailable(err error) bool {
	return err != nil && !IsNotFound(err)
}
