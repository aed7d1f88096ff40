// middleware/cache.go

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vanguard-api/vanguard/cache"
	logger "github.com/vanguard-api/vanguard/logging"
	"github.com/vanguard-api/vanguard/util"
)

// cachedResponse is the envelope stored in the shared state store for a
// cached read.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// errUncacheable carries a non-2xx response through the single-flight
// group without populating the cache. Every waiter on the flight receives
// the same response.
type errUncacheable struct {
	payload cachedResponse
}

func (e *errUncacheable) Error() string { return "response not cacheable" }

// ResponseCache serves GET responses for a single-resource route from the
// cache layer. The handler only runs on a miss, and concurrent misses for
// the same key collapse into one handler invocation. varyByRole folds the
// principal's roles into the key for routes whose payload depends on them.
func ResponseCache(layer *cache.Layer, resourceType string, ttl time.Duration, varyByRole bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		var variants []string
		if varyByRole {
			if principal := util.PrincipalFromContext(c); principal != nil {
				variants = append(variants, strings.Join(principal.Roles, ","))
			}
		}
		key := cache.Key(resourceType, c.Param("id"), variants...)

		value, hit, err := layer.GetOrCompute(c.Request.Context(), key, ttl, func(_ context.Context) ([]byte, error) {
			return captureResponse(c)
		})
		if err != nil {
			var uncacheable *errUncacheable
			if errors.As(err, &uncacheable) {
				emit(c, uncacheable.payload, false)
				return
			}
			logger.Error("Cache compute failed",
				zap.Error(err),
				zap.String("key", key))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			c.Abort()
			return
		}

		var resp cachedResponse
		if unmarshalErr := json.Unmarshal(value, &resp); unmarshalErr != nil {
			// A corrupt entry is dropped and treated as an internal error;
			// the next read recomputes it.
			logger.Error("Cache entry corrupt, invalidating",
				zap.Error(unmarshalErr),
				zap.String("key", key))
			_ = layer.Invalidate(c.Request.Context(), key)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			c.Abort()
			return
		}

		emit(c, resp, hit)
	}
}

// captureResponse runs the rest of the chain against a buffering writer
// and returns the serialized envelope if the response is cacheable.
func captureResponse(c *gin.Context) ([]byte, error) {
	original := c.Writer
	recorder := &bodyCaptureWriter{ResponseWriter: original, status: http.StatusOK}
	c.Writer = recorder
	c.Next()
	c.Writer = original

	resp := cachedResponse{
		Status:      recorder.status,
		ContentType: recorder.Header().Get("Content-Type"),
		Body:        recorder.body.Bytes(),
	}

	if recorder.status < http.StatusOK || recorder.status >= http.StatusMultipleChoices {
		return nil, &errUncacheable{payload: resp}
	}

	return json.Marshal(resp)
}

// emit writes the (possibly cached) response to the client, attaching the
// entity tag so downstream clients can revalidate without the body.
func emit(c *gin.Context, resp cachedResponse, hit bool) {
	etag := `"` + cache.VersionTag(resp.Body) + `"`

	if hit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}

	if resp.Status >= http.StatusOK && resp.Status < http.StatusMultipleChoices {
		c.Header("ETag", etag)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			c.Abort()
			return
		}
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json; charset=utf-8"
	}
	c.Data(resp.Status, contentType, resp.Body)
	c.Abort()
}

// bodyCaptureWriter buffers the response instead of sending it, so the
// pipeline can decide whether to cache before anything reaches the client.
type bodyCaptureWriter struct {
	gin.ResponseWriter
	body   bytes.Buffer
	status int
}

func (w *bodyCaptureWriter) WriteHeader(code int) {
	w.status = code
}

func (w *bodyCaptureWriter) WriteHeaderNow() {}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

func (w *bodyCaptureWriter) Status() int {
	return w.status
}

func (w *bodyCaptureWriter) Size() int {
	return w.body.Len()
}

func (w *bodyCaptureWriter) Written() bool {
	return w.body.Len() > 0
}
