package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

const version = "1.0.0"

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthCheck reports process uptime and the reachability of the database
// and, when configured, Redis. An unreachable database answers 503.
func HealthCheck(db Pinger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		checks := gin.H{}
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				logger.Warn("health: database unreachable", "err", err)
				checks["database"] = "down"
				status, code = "degraded", http.StatusServiceUnavailable
			} else {
				checks["database"] = "up"
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				logger.Warn("health: redis unreachable", "err", err)
				checks["redis"] = "down"
			} else {
				checks["redis"] = "up"
			}
		} else {
			checks["redis"] = "disabled"
		}

		c.JSON(code, gin.H{
			"status":  status,
			"service": "burzaco-royale-api",
			"version": version,
			"uptime":  time.Since(startTime).String(),
			"checks":  checks,
		})
	}
}
