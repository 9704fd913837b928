package middleware

import (
	"context"
	"net/http"
	"strconv"

	"hivley/internal/redis"
	"hivley/internal/services"
	"hivley/internal/transport/httpdto"
	"hivley/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Limiter is satisfied by redis.RateLimiter.
type Limiter interface {
	AllowMessage(ctx context.Context, profileID string) (*redis.RateLimitResult, error)
	AllowAuth(ctx context.Context, ip string) (*redis.RateLimitResult, error)
}

// AuthRateLimitMiddleware limits signup and login attempts per client IP.
// A nil limiter disables the check.
func AuthRateLimitMiddleware(limiter Limiter, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		result, err := limiter.AllowAuth(c.Request.Context(), c.ClientIP())
		enforce(c, result, err, "rate limit exceeded", l)
	}
}

// MessageRateLimitMiddleware limits message sends per profile. It must
// run after AuthMiddleware.
func MessageRateLimitMiddleware(limiter Limiter, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if limiter == nil || !ok {
			c.Next()
			return
		}
		result, err := limiter.AllowMessage(c.Request.Context(), userID.String())
		enforce(c, result, err, "message rate limit exceeded", l)
	}
}

// enforce fails open when Redis is unreachable.
func enforce(c *gin.Context, result *redis.RateLimitResult, err error, msg string, l *logger.Logger) {
	if err != nil {
		if l != nil {
			l.WithContext(c.Request.Context()).Warnf("rate limit check skipped: %v", err)
		}
		c.Next()
		return
	}

	setRateLimitHeaders(c, result)

	if !result.Allowed {
		c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse(msg, "RATE_LIMITED"))
		c.Abort()
		return
	}
	c.Next()
}

// setRateLimitHeaders sets standard rate limit response headers
func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
