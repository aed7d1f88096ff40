// middleware/ratelimit.go

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/vanguard-api/vanguard/logging"
	"github.com/vanguard-api/vanguard/ratelimit"
	"github.com/vanguard-api/vanguard/util"
)

// RateLimit admits or rejects the request against its (subject, route)
// window. It runs after authentication so each principal draws from its
// own bucket; requests on unauthenticated routes draw from a per-IP
// anonymous bucket instead.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := ratelimit.Route{
			ID:    c.Request.Method + " " + c.FullPath(),
			Write: isWrite(c.Request.Method),
		}

		subject := "anon:" + c.ClientIP()
		if principal := util.PrincipalFromContext(c); principal != nil {
			subject = principal.Subject
		}

		res, err := limiter.Admit(c.Request.Context(), subject, route, time.Now())
		if err != nil {
			logger.Error("Rate limiter unavailable, rejecting per fail-closed policy",
				zap.Error(err),
				zap.String("route", route.ID),
				zap.String("subject", subject))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Rate limiter unavailable"})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Degraded {
			c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
		}

		if !res.Allowed {
			retryAfter := int(res.RetryAfter.Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			logger.Warn("Rate limit exceeded",
				zap.String("subject", subject),
				zap.String("route", route.ID),
				zap.Int("limit", res.Limit),
				zap.Duration("retryAfter", res.RetryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
