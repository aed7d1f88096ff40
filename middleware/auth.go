// middleware/auth.go

package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vanguard-api/vanguard/auth"
	apperrors "github.com/vanguard-api/vanguard/errors"
	logger "github.com/vanguard-api/vanguard/logging"
	"github.com/vanguard-api/vanguard/util"
)

// Authenticator verifies the bearer credential and establishes the request
// Principal. It is the first pipeline stage: an unauthenticated request is
// rejected here, before it can consume rate-limit budget or touch the
// shared store.
func Authenticator(guard *auth.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := auth.ParseBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			reject(c, err)
			return
		}

		principal, err := guard.Authenticate(raw)
		if err != nil {
			reject(c, err)
			return
		}

		c.Set(util.PrincipalContextKey, principal)
		c.Next()
	}
}

func reject(c *gin.Context, err error) {
	logger.Warn("Authentication rejected",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("ip", c.ClientIP()))

	msg := "Unauthorized"
	if errors.Is(err, apperrors.ErrTokenExpired) {
		msg = "Token expired"
	}

	c.Header("WWW-Authenticate", "Bearer")
	c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
	c.Abort()
}
