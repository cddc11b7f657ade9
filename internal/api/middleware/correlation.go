package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader carries the request identifier in and out
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey stores the identifier in the gin context
	CorrelationIDKey = "correlation_id"
)

// CorrelationID tags every request with an identifier that follows it
// through log lines and response envelopes. A caller-supplied ID is
// echoed back; absent one, a fresh UUID is minted.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Header(CorrelationIDHeader, correlationID)
		c.Set(CorrelationIDKey, correlationID)

		c.Next()
	}
}

// GetCorrelationID returns the request's correlation ID, or "" outside
// the middleware chain
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(CorrelationIDKey)
}
