// middleware/pipeline_test.go
package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanguard-api/vanguard/auth"
	"github.com/vanguard-api/vanguard/cache"
	"github.com/vanguard-api/vanguard/config"
	"github.com/vanguard-api/vanguard/ratelimit"
	"github.com/vanguard-api/vanguard/store"
)

// countingStore wraps a Store and counts round trips, so tests can assert
// that rejected requests never touch the shared state store.
type countingStore struct {
	store.Store
	ops int32
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	atomic.AddInt32(&c.ops, 1)
	return c.Store.Get(ctx, key)
}

func (c *countingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	atomic.AddInt32(&c.ops, 1)
	return c.Store.Set(ctx, key, value, ttl)
}

func (c *countingStore) IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	atomic.AddInt32(&c.ops, 1)
	return c.Store.IncrWithExpiry(ctx, key, ttl)
}

func (c *countingStore) Delete(ctx context.Context, key string) error {
	atomic.AddInt32(&c.ops, 1)
	return c.Store.Delete(ctx, key)
}

type pipelineEnv struct {
	engine       *gin.Engine
	guard        *auth.Guard
	layer        *cache.Layer
	counter      *countingStore
	mr           *miniredis.Miniredis
	handlerCalls int32
	version      int32
}

func newPipelineEnv(t *testing.T, rlCfg config.RateLimitConfiguration) *pipelineEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	env := &pipelineEnv{
		guard: auth.NewGuard("pipeline-test-secret", "vanguard"),
		mr:    mr,
	}
	env.counter = &countingStore{
		Store: store.NewRedisStore(client, "test:", store.WithOpTimeout(100*time.Millisecond)),
	}
	env.layer = cache.NewLayer(env.counter, 1, 0, nil)
	limiter := ratelimit.NewLimiter(env.counter, rlCfg, nil)
	env.version = 1

	engine := gin.New()
	api := engine.Group("/api/v1")
	api.Use(Authenticator(env.guard), RateLimit(limiter))

	api.GET("/items/:id",
		ResponseCache(env.layer, "item", time.Minute, false),
		func(c *gin.Context) {
			atomic.AddInt32(&env.handlerCalls, 1)
			c.JSON(http.StatusOK, gin.H{
				"id":      c.Param("id"),
				"version": atomic.LoadInt32(&env.version),
			})
		})
	api.POST("/items", func(c *gin.Context) {
		atomic.AddInt32(&env.handlerCalls, 1)
		c.JSON(http.StatusCreated, gin.H{"created": true})
	})

	env.engine = engine
	return env
}

func (env *pipelineEnv) token(t *testing.T, subject string, ttl time.Duration) string {
	t.Helper()
	token, err := env.guard.IssueToken(subject, []string{"user"}, ttl)
	require.NoError(t, err)
	return token
}

func (env *pipelineEnv) do(method, path, token string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	return w
}

func defaultRL() config.RateLimitConfiguration {
	return config.RateLimitConfiguration{
		DefaultLimit:   100,
		DefaultWindow:  time.Minute,
		FailOpenReads:  true,
		FailOpenWrites: false,
	}
}

func TestPipelineRejectsMissingToken(t *testing.T) {
	env := newPipelineEnv(t, defaultRL())

	w := env.do(http.MethodGet, "/api/v1/items/1", "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	// The rejection happens before the limiter or cache run: no budget is
	// consumed and the store is never contacted.
	assert.Equal(t, int32(0), atomic.LoadInt32(&env.counter.ops))
	assert.Equal(t, int32(0), atomic.LoadInt32(&env.handlerCalls))
}

func TestPipelineRejectsExpiredToken(t *testing.T) {
	env := newPipelineEnv(t, defaultRL())
	expired := env.token(t, "alice", -time.Minute)

	w := env.do(http.MethodGet, "/api/v1/items/1", expired, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token expired")
	assert.Equal(t, int32(0), atomic.LoadInt32(&env.counter.ops))
}

func TestPipelineRateLimitHeadersAndRejection(t *testing.T) {
	cfg := defaultRL()
	cfg.DefaultLimit = 2
	env := newPipelineEnv(t, cfg)
	token := env.token(t, "alice", time.Minute)

	w := env.do(http.MethodGet, "/api/v1/items/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))

	// A cache hit still consumes budget: the limiter runs first.
	w = env.do(http.MethodGet, "/api/v1/items/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = env.do(http.MethodGet, "/api/v1/items/1", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&env.handlerCalls))
}

func TestPipelineAuthFailureConsumesNoBudget(t *testing.T) {
	cfg := defaultRL()
	cfg.DefaultLimit = 1
	env := newPipelineEnv(t, cfg)

	w := env.do(http.MethodGet, "/api/v1/items/1", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// The bad-credential request did not draw from alice's window.
	w = env.do(http.MethodGet, "/api/v1/items/1", env.token(t, "alice", time.Minute), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPipelineRateLimitIsPerSubject(t *testing.T) {
	cfg := defaultRL()
	cfg.DefaultLimit = 1
	env := newPipelineEnv(t, cfg)

	w := env.do(http.MethodGet, "/api/v1/items/1", env.token(t, "alice", time.Minute), nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodGet, "/api/v1/items/1", env.token(t, "alice", time.Minute), nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	// Alice exhausting her window does not affect bob.
	w = env.do(http.MethodGet, "/api/v1/items/1", env.token(t, "bob", time.Minute), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPipelineCacheMissThenHit(t *testing.T) {
	env := newPipelineEnv(t, defaultRL())
	token := env.token(t, "alice", time.Minute)

	w := env.do(http.MethodGet, "/api/v1/items/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	etag := w.Header().Get("ETag")
	assert.NotEmpty(t, etag)
	firstBody := w.Body.String()

	w = env.do(http.MethodGet, "/api/v1/items/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, firstBody, w.Body.String())
	assert.Equal(t, etag, w.Header().Get("ETag"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&env.handlerCalls))

	// Different resource IDs do not share entries.
	w = env.do(http.MethodGet, "/api/v1/items/2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
}

func TestPipelineConditionalRequest(t *testing.T) {
	env := newPipelineEnv(t, defaultRL())
	token := env.token(t, "alice", time.Minute)

	w := env.do(http.MethodGet, "/api/v1/items/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	w = env.do(http.MethodGet, "/api/v1/items/1", token, map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Zero(t, w.Body.Len())
}

func TestPipelineInvalidationForcesRecompute(t *testing.T) {
	env := newPipelineEnv(t, defaultRL())
	token := env.token(t, "alice", time.Minute)

	w := env.do(http.MethodGet, "/api/v1/items/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	staleBody := w.Body.String()

	// A mutation elsewhere invalidates the entry and changes the state.
	atomic.AddInt32(&env.version, 1)
	require.NoError(t, env.layer.Invalidate(context.Background(), cache.Key("item", "1")))

	w = env.do(http.MethodGet, "/api/v1/items/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.NotEqual(t, staleBody, w.Body.String())
	freshBody := w.Body.String()

	// The recomputed entry serves subsequent reads.
	w = env.do(http.MethodGet, "/api/v1/items/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, freshBody, w.Body.String())
	assert.Equal(t, int32(2), atomic.LoadInt32(&env.handlerCalls))
}

func TestPipelineWritesAreNotCached(t *testing.T) {
	env := newPipelineEnv(t, defaultRL())
	token := env.token(t, "alice", time.Minute)

	for i := 0; i < 2; i++ {
		w := env.do(http.MethodPost, "/api/v1/items", token, nil)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Empty(t, w.Header().Get("X-Cache"))
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&env.handlerCalls))
}

func TestPipelineStoreDownDegradation(t *testing.T) {
	env := newPipelineEnv(t, defaultRL())
	token := env.token(t, "alice", time.Minute)

	env.mr.Close()

	// Reads fail open: admitted without a counted decision, response
	// computed directly. The degraded admission advertises no reset time.
	w := env.do(http.MethodGet, "/api/v1/items/1", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Empty(t, w.Header().Get("X-RateLimit-Reset"))

	// Writes fail closed.
	w = env.do(http.MethodPost, "/api/v1/items", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
