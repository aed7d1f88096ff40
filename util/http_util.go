// util/http_util.go
package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vanguard-api/vanguard/auth"
	logger "github.com/vanguard-api/vanguard/logging"
)

// PrincipalContextKey is where the auth middleware stores the verified
// Principal on the gin context.
const PrincipalContextKey = "principal"

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": message})
}

// StaleCacheWarning marks a successful mutation whose cache invalidation
// did not complete. Reads may serve the previous state until the entry's
// TTL expires.
func StaleCacheWarning(c *gin.Context) {
	c.Header("Warning", `214 vanguard "cache invalidation incomplete"`)
}

// PrincipalFromContext returns the Principal established by the auth
// middleware, or nil for routes that run without authentication.
func PrincipalFromContext(c *gin.Context) *auth.Principal {
	v, exists := c.Get(PrincipalContextKey)
	if !exists {
		return nil
	}
	p, ok := v.(*auth.Principal)
	if !ok {
		return nil
	}
	return p
}
