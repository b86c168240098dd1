package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/threatalytics/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// DemoRateLimit returns a middleware that throttles the unauthenticated demo
// endpoint per client IP. The limiter may be Redis-backed or in-memory; on a
// limiter error the request is allowed through.
func DemoRateLimit(limiter cache.RateLimiter, perHour int, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), "demo:"+c.ClientIP(), int64(perHour), time.Hour)
		if err != nil {
			logger.Warn("Demo rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ERR_RATE_LIMITED",
					"message": "Too many demo requests. Please try again later.",
				},
			})
			return
		}
		c.Next()
	}
}
