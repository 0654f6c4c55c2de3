package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agrolink/backend/internal/interfaces/http/dto"
)

const (
	headerRateLimit     = "X-RateLimit-Limit"
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"
)

// HitCounter counts requests per key in fixed windows. It returns the count
// including this hit and the time left until the window resets.
type HitCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, reset time.Duration, err error)
}

// RateLimitConfig configures RateLimit
type RateLimitConfig struct {
	Counter HitCounter
	Limit   int
	Window  time.Duration
	Logger  *zap.Logger
}

// RateLimit caps requests per caller and window. Identified callers are
// keyed by user and address so that clients sharing a gateway do not starve
// each other. Counter failures let the request through.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	limit := strconv.Itoa(cfg.Limit)

	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID := c.GetHeader(HeaderUserID); userID != "" {
			key = userID + ":" + key
		}

		count, reset, err := cfg.Counter.Hit(c.Request.Context(), key, cfg.Window)
		if err != nil {
			cfg.Logger.Warn("Rate limit counter unavailable, allowing request",
				zap.String("request_id", RequestIDFrom(c)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		resetSeconds := strconv.Itoa(int(math.Ceil(reset.Seconds())))
		remaining := int64(cfg.Limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header(headerRateLimit, limit)
		c.Header(headerRateRemaining, strconv.FormatInt(remaining, 10))
		c.Header(headerRateReset, resetSeconds)

		if count > int64(cfg.Limit) {
			c.Header("Retry-After", resetSeconds)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(
				dto.ErrCodeRateLimited, "too many requests, retry later",
				dto.WithRequestID(RequestIDFrom(c))))
			return
		}
		c.Next()
	}
}
