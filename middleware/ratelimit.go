package middleware

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"leadflow/monitoring"
	"leadflow/ratelimit"
)

// RateLimit rejects requests once a client exceeds its fixed window,
// keyed by client address + endpoint. Limiter failures (e.g. redis down)
// fail open: losing rate limiting briefly is better than refusing leads.
func RateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP() + "|" + c.FullPath()

		decision, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Printf("Rate limit check failed for %s: %v", key, err)
			c.Next()
			return
		}
		if !decision.Allowed {
			monitoring.SubmissionsTotal.WithLabelValues(kindFromPath(c.FullPath()), "rate_limited").Inc()
			c.Header("Retry-After", strconv.Itoa(retrySeconds(decision.RetryAfter)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":  "rate limit exceeded",
				"reason": "RateLimited",
			})
			return
		}

		c.Next()
	}
}

func kindFromPath(path string) string {
	if strings.Contains(path, "phone-leads") {
		return "phone_lead"
	}
	return "consultation"
}

// retrySeconds rounds the remaining window up to whole seconds, with a
// one-second floor so clients never retry immediately.
func retrySeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
