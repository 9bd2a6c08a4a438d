package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"rideshare-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// RateLimiter records a hit on key and reports whether it is still within limit.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type RateLimitMiddleware struct {
	limiter RateLimiter
}

func NewRateLimitMiddleware(limiter RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// RateLimit limits authenticated requests per user and route.
func (rm *RateLimitMiddleware) RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get(ContextUserID)
		if !exists {
			response.Error(c, http.StatusUnauthorized, "unauthorized", "")
			return
		}
		key := fmt.Sprintf("rate_limit:%v:%s", userID, c.FullPath())
		rm.check(c, key, requests, window)
	}
}

// RateLimitIP limits public requests per client IP and route.
func (rm *RateLimitMiddleware) RateLimitIP(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit_ip:%s:%s", c.ClientIP(), c.FullPath())
		rm.check(c, key, requests, window)
	}
}

func (rm *RateLimitMiddleware) check(c *gin.Context, key string, requests int, window time.Duration) {
	allowed, err := rm.limiter.CheckRateLimit(c.Request.Context(), key, requests, window)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "rate limit check failed", "")
		return
	}
	if !allowed {
		response.Error(c, http.StatusTooManyRequests, "rate limit exceeded", fmt.Sprintf("limit: %d per %v", requests, window))
		return
	}
	c.Next()
}
