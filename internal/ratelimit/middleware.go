package ratelimit

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	apperrors "github.com/ZanzyTHEbar/survey-o-meter/internal/errors"
	"github.com/gin-gonic/gin"
)

// IPRateLimitMiddleware limits every request per client IP
func (rl *RateLimiter) IPRateLimitMiddleware() gin.HandlerFunc {
	return rl.limit("ip", PerMinute(rl.config.RequestsPerMinute, rl.config.BurstMultiplier))
}

// UploadRateLimitMiddleware limits pipeline uploads per client IP
func (rl *RateLimiter) UploadRateLimitMiddleware() gin.HandlerFunc {
	return rl.EndpointRateLimitMiddleware("upload", rl.config.UploadsPerMinute)
}

// EndpointRateLimitMiddleware creates middleware for endpoint-specific rate limiting
func (rl *RateLimiter) EndpointRateLimitMiddleware(endpoint string, limit int) gin.HandlerFunc {
	return rl.limit(endpoint, PerMinute(limit, rl.config.BurstMultiplier))
}

func (rl *RateLimiter) limit(endpoint string, r Rate) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		key := fmt.Sprintf("ratelimit:%s:%s", endpoint, ip)

		result, err := rl.Allow(c.Request.Context(), key, r)
		if err != nil {
			// A broken limiter must not take the API down with it.
			slog.Error("Rate limit check failed", "endpoint", endpoint, "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitBlock(endpoint)
			}

			retryAfter := strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds())))
			c.Header("Retry-After", retryAfter)

			appErr := apperrors.NewRateLimitError(retryAfter)
			apperrors.LogError(c, appErr)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, appErr)
			return
		}

		c.Next()
	}
}
