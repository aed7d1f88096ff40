// Package ratelimit implements the admission stage of the request
// pipeline: a fixed-window counter held in the shared state store.
//
// The fixed window is a deliberate trade-off against a sliding log: O(1)
// space per key and a single atomic round trip per decision, at the cost
// of allowing up to 2x the limit across one window boundary.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vanguard-api/vanguard/config"
	apperrors "github.com/vanguard-api/vanguard/errors"
	"github.com/vanguard-api/vanguard/store"
)

// Route is the rate-limit identity of an endpoint: the normalized
// method + path template, and whether it mutates state. The template form
// means /items/1 and /items/2 share one route identity.
type Route struct {
	ID    string
	Write bool
}

// Result is the outcome of an admission decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when the current window expires and the counter resets.
	ResetAt time.Time
	// RetryAfter is how long a rejected caller should wait. Zero when allowed.
	RetryAfter time.Duration
	// Degraded is set when the store was unreachable and the configured
	// fail-open policy admitted the request without a counted decision.
	Degraded bool
}

// Limiter makes admission decisions against the shared state store. All
// cross-worker coordination happens in the store's atomic increment; the
// limiter itself holds no counter state.
type Limiter struct {
	store          store.Store
	defaultLimit   config.RouteLimit
	routes         map[string]config.RouteLimit
	failOpenReads  bool
	failOpenWrites bool
	logger         *zap.Logger
}

// NewLimiter builds a Limiter from the validated rate limit configuration.
func NewLimiter(s store.Store, cfg config.RateLimitConfiguration, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		store:          s,
		defaultLimit:   config.RouteLimit{Limit: cfg.DefaultLimit, Window: cfg.DefaultWindow},
		routes:         cfg.Routes,
		failOpenReads:  cfg.FailOpenReads,
		failOpenWrites: cfg.FailOpenWrites,
		logger:         logger,
	}
}

// limitFor resolves the budget for a route, falling back to the default.
func (l *Limiter) limitFor(routeID string) config.RouteLimit {
	if rl, ok := l.routes[routeID]; ok {
		return rl
	}
	return l.defaultLimit
}

// Admit decides whether one more request from subject on route fits the
// current window. The decision is a single atomic increment-with-expiry
// round trip: concurrent requests racing on the same key observe a
// monotonically increasing count, ordered by the store, and the request
// that reaches exactly the limit is still admitted.
//
// If the store is unreachable, the configured per-route-class policy
// applies: fail-open admits with Result.Degraded set, fail-closed returns
// ErrLimiterUnavailable.
func (l *Limiter) Admit(ctx context.Context, subject string, route Route, now time.Time) (*Result, error) {
	rl := l.limitFor(route.ID)
	key := BucketKey(subject, route.ID)

	count, remaining, err := l.store.IncrWithExpiry(ctx, key, rl.Window)
	if err != nil {
		if l.failOpen(route) {
			l.logger.Warn("rate limit store unreachable, admitting per fail-open policy",
				zap.String("route", route.ID),
				zap.Error(err))
			return &Result{
				Allowed:   true,
				Limit:     rl.Limit,
				Remaining: rl.Limit,
				Degraded:  true,
			}, nil
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrLimiterUnavailable, err)
	}

	// PTTL can report "no expiry" if the key predates this limiter or the
	// store dropped the TTL; treat the full window as remaining.
	if remaining <= 0 {
		remaining = rl.Window
	}

	res := &Result{
		Limit:   rl.Limit,
		ResetAt: now.Add(remaining),
	}

	if count <= int64(rl.Limit) {
		res.Allowed = true
		res.Remaining = rl.Limit - int(count)
		return res, nil
	}

	res.Allowed = false
	res.Remaining = 0
	res.RetryAfter = remaining
	return res, nil
}

func (l *Limiter) failOpen(route Route) bool {
	if route.Write {
		return l.failOpenWrites
	}
	return l.failOpenReads
}
