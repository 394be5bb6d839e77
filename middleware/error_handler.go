package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leadflow/utils"
)

// ErrorHandler forwards handler errors to sentry. Client-side statuses
// are skipped: validation failures, duplicates and rate limiting are
// expected traffic, not faults.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		if c.Writer.Status() < http.StatusInternalServerError {
			return
		}

		for _, ginErr := range c.Errors {
			utils.CaptureError(ginErr.Err, map[string]interface{}{
				"endpoint": c.Request.URL.Path,
				"method":   c.Request.Method,
				"status":   c.Writer.Status(),
			})
		}
	}
}
