package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery converts handler panics into a 500 response so one bad
// request cannot take the process down. The stack is logged, never sent
// to the client.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			logger.Error("Panic recovered",
				"error", r,
				"stack", string(debug.Stack()),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)

			body := gin.H{
				"error": gin.H{
					"code":    "INTERNAL_SERVER_ERROR",
					"message": "An internal server error occurred",
				},
			}
			if correlationID := GetCorrelationID(c); correlationID != "" {
				body["correlation_id"] = correlationID
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()

		c.Next()
	}
}
