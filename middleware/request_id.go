package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	goIAM "github.com/MrEthical07/goIAM"
)

const requestIDHeader = "X-Request-Id"

// RequestID propagates or assigns a request id and attaches the client IP
// and user agent to the request context for audit records.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(requestIDHeader, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)

		ctx := goIAM.WithClientIP(c.Request.Context(), c.ClientIP())
		ctx = goIAM.WithUserAgent(ctx, c.GetHeader("User-Agent"))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
