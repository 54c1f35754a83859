package http

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RateLimiter decides whether a client key may make another request.
type RateLimiter interface {
	Allow(key string) (bool, time.Duration)
	Limit() int
}

// RequestID propagates the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RateLimit rejects clients over their window with 429 and Retry-After.
func RateLimit(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := limiter.Allow(c.ClientIP())
		if allowed {
			c.Next()
			return
		}

		seconds := int(math.Ceil(retryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		slog.WarnContext(c.Request.Context(), "Rate limit exceeded", "client", c.ClientIP(), "request_id", c.GetString("request_id"))
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded, retry later"})
	}
}
