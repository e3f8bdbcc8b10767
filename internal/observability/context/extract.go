package context

import "github.com/gin-gonic/gin"

// RequestIDFromGin reads the request id placed on the request context by the
// logging middleware, falling back to the inbound header.
func RequestIDFromGin(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return ""
	}
	if value := RequestIDFromContext(c.Request.Context()); value != "" {
		return value
	}
	return c.GetHeader("X-Request-Id")
}
