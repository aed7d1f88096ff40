// Package cache implements the read-through, write-invalidate response
// cache of the request pipeline.
//
// Explicit invalidation is the consistency mechanism; the TTL on every
// entry only bounds the staleness of a missed or failed invalidation.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/vanguard-api/vanguard/errors"
	"github.com/vanguard-api/vanguard/store"
)

// ComputeFunc produces the authoritative value for a key on a cache miss.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// Layer is the read-through cache. Cache contents live in the shared state
// store; the only process-local state is the in-flight computation group,
// which is safe to lose on restart (a lost flight means redundant
// recomputation, never staleness).
type Layer struct {
	store   store.Store
	flight  singleflight.Group
	retries int
	backoff time.Duration
	logger  *zap.Logger
}

// NewLayer creates a cache layer. retries bounds how many times a failed
// invalidation delete is reattempted before it is surfaced.
func NewLayer(s store.Store, retries int, backoff time.Duration, logger *zap.Logger) *Layer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Layer{
		store:   s,
		retries: retries,
		backoff: backoff,
		logger:  logger,
	}
}

// GetOrCompute returns the cached value for key, computing and populating
// it on a miss. The second return value reports whether the value came
// from the cache.
//
// Concurrent misses for the same key share one computation: the first
// caller computes, everyone else suspends until it completes and receives
// the same result, success or failure. If the store itself is unreachable
// the layer degrades to direct computation rather than failing the request.
func (c *Layer) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) ([]byte, bool, error) {
	value, err := c.store.Get(ctx, key)
	if err == nil {
		return value, true, nil
	}
	if store.IsUnavailable(err) {
		c.logger.Warn("cache unreachable, computing directly",
			zap.String("key", key),
			zap.Error(err))
		v, computeErr := compute(ctx)
		if computeErr != nil {
			return nil, false, computeErr
		}
		return v, false, nil
	}

	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		// Another flight may have populated the key while this caller was
		// queueing behind the singleflight lock.
		if cached, getErr := c.store.Get(ctx, key); getErr == nil {
			return cached, nil
		}

		computed, computeErr := compute(ctx)
		if computeErr != nil {
			return nil, computeErr
		}

		// Population runs on a detached context: the computation already
		// happened, and abandoning the write would only force the next
		// reader to recompute.
		if setErr := c.store.Set(context.WithoutCancel(ctx), key, computed, ttl); setErr != nil {
			c.logger.Warn("failed to populate cache",
				zap.String("key", key),
				zap.Error(setErr))
		}
		return computed, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), false, nil
}

// Invalidate deletes the entries for every given key. Each delete is
// retried a bounded number of times; keys that still fail are reported in
// a single ErrInvalidationFailed so the caller can flag possible staleness
// instead of silently succeeding. The TTL on the entry remains the
// backstop for that case.
func (c *Layer) Invalidate(ctx context.Context, keys ...string) error {
	// Deletes must complete even if the client has already disconnected;
	// the mutation they follow is not reversible.
	ctx = context.WithoutCancel(ctx)

	var failed []error
	for _, key := range keys {
		if err := c.deleteWithRetry(ctx, key); err != nil {
			c.logger.Error("cache invalidation failed after retries",
				zap.String("key", key),
				zap.Int("retries", c.retries),
				zap.Error(err))
			failed = append(failed, fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidationFailed, key, err))
			continue
		}
		c.logger.Debug("cache invalidated", zap.String("key", key))
	}
	return errors.Join(failed...)
}

func (c *Layer) deleteWithRetry(ctx context.Context, key string) error {
	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(c.backoff)
		}
		if err = c.store.Delete(ctx, key); err == nil {
			return nil
		}
	}
	return err
}
