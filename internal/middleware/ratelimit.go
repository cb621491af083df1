package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const rateLimitMessage = "Demasiadas peticiones, por favor intenta más tarde"

// RateLimit allows at most limit requests per client IP in each fixed window.
// Counters live in Redis so every server instance shares them. Without Redis,
// or when Redis fails, requests are let through.
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	logger := log.WithPrefix("RATELIMIT")
	if rdb == nil || limit <= 0 || window <= 0 {
		logger.Info("rate limiting disabled")
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		count, err := hit(ctx, rdb, rateKey(c.ClientIP(), window, time.Now()), window)
		if err != nil {
			logger.Warn("counter unavailable, allowing request", "ip", c.ClientIP(), "err", err)
			c.Next()
			return
		}

		remaining := limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > limit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": rateLimitMessage})
			return
		}
		c.Next()
	}
}

// rateKey buckets requests of ip into the window that contains now.
func rateKey(ip string, window time.Duration, now time.Time) string {
	bucket := now.UnixNano() / int64(window)
	return fmt.Sprintf("rate:%s:%d", ip, bucket)
}

// hit increments the counter at key, setting its expiry on first use.
func hit(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (int64, error) {
	pipe := rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
