package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/fitretto/gymbill/internal/observability/metrics"
	"github.com/gin-gonic/gin"
)

// Middleware throttles by client IP. With a nil limiter it is a no-op.
func Middleware(limiter *RequestLimiter, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Enabled() {
			c.Next()
			return
		}

		allowed, retryAfter := limiter.Allow(c.Request.Context(), c.ClientIP())
		if !allowed {
			m.RecordRateLimitDenied()
			if retryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
