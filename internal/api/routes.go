package api

import (
	"time"

	"github.com/burzacoroyale/backend/internal/api/handlers"
	"github.com/burzacoroyale/backend/internal/auth"
	"github.com/burzacoroyale/backend/internal/config"
	"github.com/burzacoroyale/backend/internal/metrics"
	"github.com/burzacoroyale/backend/internal/middleware"
	"github.com/burzacoroyale/backend/internal/players"
	"github.com/burzacoroyale/backend/internal/ws"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Dependencies are the services the HTTP routes are built from.
type Dependencies struct {
	Config   *config.Config
	DB       handlers.Pinger // optional, used by /health
	Redis    *redis.Client   // optional
	Players  *players.Store
	Tokens   *auth.Tokens
	Matches  handlers.MatchLookup
	Results  handlers.ResultLoader
	WS       *ws.Handler
	Gatherer prometheus.Gatherer // defaults to the global registry
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, d Dependencies) {
	cfg := d.Config
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.WithPrefix("API").Info("no-cache headers enabled", "environment", cfg.Environment)
	}

	if d.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.NewMetricsHandler(d.Gatherer)))
	} else {
		router.GET("/metrics", gin.WrapH(metrics.NewMetricsHandler()))
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit(d.Redis, cfg.RateLimitRequests, time.Duration(cfg.RateLimitWindowSeconds)*time.Second))
	{
		v1.GET("/health", handlers.HealthCheck(d.DB, d.Redis))
		v1.GET("/config", handlers.GetConfig(cfg))

		v1.POST("/players", handlers.CreatePlayer(d.Players, d.Tokens))
		v1.POST("/login", handlers.Login(d.Players, d.Tokens, cfg))
		v1.GET("/ranking", handlers.GetRanking(d.Players))

		player := v1.Group("/players")
		{
			player.GET("/:id", handlers.GetPlayer(d.Players))
			player.PUT("/:id/name", middleware.RequireSession(d.Tokens), handlers.ChangeName(d.Players))
		}

		v1.GET("/matches/:id", handlers.GetMatchResult(d.Results, d.Matches))
		v1.GET("/queue/status", handlers.GetQueueStatus(d.Matches))

		if d.WS != nil {
			v1.GET("/ws", handlers.HandleGameWebSocket(d.WS))
		}
	}
}
