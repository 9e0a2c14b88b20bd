package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID is the inbound/outbound request correlation header.
const HeaderRequestID = "X-Request-ID"

const contextKeyRequestID = "request_id"

// RequestID assigns every request a correlation id, reusing the caller's
// X-Request-ID when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextKeyRequestID, id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}

// GetRequestID returns the correlation id assigned by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(contextKeyRequestID)
}
