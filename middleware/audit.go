// middleware/audit.go

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vanguard-api/vanguard/util"
)

// AuditRejections publishes an event for every request a pipeline stage
// refused. It wraps the whole chain, so it sees the final status no matter
// which stage aborted. Publishing is asynchronous and never delays the
// response.
func AuditRejections(bus *util.EventBus) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		switch status {
		case http.StatusUnauthorized, http.StatusForbidden,
			http.StatusTooManyRequests, http.StatusServiceUnavailable:
		default:
			return
		}

		subject := ""
		if principal := util.PrincipalFromContext(c); principal != nil {
			subject = principal.Subject
		}

		bus.Publish(c.Request.Context(), "request.rejected", util.RejectedRequest{
			Method:   c.Request.Method,
			Path:     c.Request.URL.Path,
			Status:   status,
			Subject:  subject,
			ClientIP: c.ClientIP(),
		})
	}
}
