// store/redis.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// incrWithExpiryScript increments a counter and, only on the first
// increment of the key's lifetime, attaches the expiry. Count and remaining
// TTL come back from the same script invocation so admission decisions and
// retry-after hints never need a second round trip.
var incrWithExpiryScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	return {count, ttl}
`)

// RedisStore implements Store on top of a go-redis client. Every operation
// runs through a circuit breaker so a dead Redis fails requests fast
// instead of stalling them on connection timeouts.
type RedisStore struct {
	client    redis.UniversalClient
	prefix    string
	opTimeout time.Duration
	breaker   *gobreaker.CircuitBreaker
	logger    *zap.Logger
}

// Option configures a RedisStore.
type Option func(*RedisStore)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *RedisStore) {
		s.logger = logger
	}
}

// WithOpTimeout bounds each store round trip.
func WithOpTimeout(d time.Duration) Option {
	return func(s *RedisStore) {
		s.opTimeout = d
	}
}

// NewRedisStore wraps an existing client. The prefix namespaces every key
// so limiter counters and cache entries can share one Redis database.
func NewRedisStore(client redis.UniversalClient, prefix string, opts ...Option) *RedisStore {
	s := &RedisStore{
		client:    client,
		prefix:    prefix,
		opTimeout: 500 * time.Millisecond,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "state-store",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		Timeout: 10 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("state store circuit breaker transition",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return s
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

// execute runs op through the circuit breaker with a bounded timeout.
// A cache miss (redis.Nil) counts as a successful round trip, not a
// failure, so misses never trip the breaker.
func (s *RedisStore) execute(ctx context.Context, op func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := s.breaker.Execute(func() (interface{}, error) {
		opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
		defer cancel()
		v, opErr := op(opCtx)
		if errors.Is(opErr, redis.Nil) {
			return nil, nil
		}
		return v, opErr
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: circuit breaker open", ErrUnavailable)
	}
	return res, err
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := s.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return s.client.Get(ctx, s.key(key)).Bytes()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return res.([]byte), nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, s.client.Set(ctx, s.key(key), value, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// IncrWithExpiry implements Store.
func (s *RedisStore) IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	ttlMillis := ttl.Milliseconds()
	if ttlMillis < 1 {
		ttlMillis = 1
	}

	res, err := s.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return incrWithExpiryScript.Run(ctx, s.client, []string{s.key(key)}, ttlMillis).Result()
	})
	if err != nil {
		return 0, 0, fmt.Errorf("%w: incr %s: %v", ErrUnavailable, key, err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return 0, 0, fmt.Errorf("%w: incr %s: unexpected script reply %T", ErrUnavailable, key, res)
	}
	count, countOK := vals[0].(int64)
	remainingMillis, ttlOK := vals[1].(int64)
	if !countOK || !ttlOK {
		return 0, 0, fmt.Errorf("%w: incr %s: unexpected script reply values", ErrUnavailable, key)
	}

	return count, time.Duration(remainingMillis) * time.Millisecond, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	_, err := s.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, s.client.Del(ctx, s.key(key)).Err()
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// Ping implements Store.
func (s *RedisStore) Ping(ctx context.Context) error {
	_, err := s.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, s.client.Ping(ctx).Err()
	})
	if err != nil {
		return fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
