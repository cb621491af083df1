package middleware

import (
	"time"

	"github.com/burzacoroyale/backend/internal/config"
	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware returns a CORS middleware configured for the environment
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	logger := log.WithPrefix("CORS")
	logger.Info("configuring", "environment", cfg.Environment, "frontend", cfg.FrontendURL)

	corsConfig := cors.Config{
		AllowMethods: []string{
			"GET", "POST", "PUT", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin", "Content-Length", "Content-Type", "Authorization",
			"Accept", "Cache-Control", "X-Requested-With",
		},
		ExposeHeaders: []string{
			"Content-Length", "X-RateLimit-Remaining",
		},
		MaxAge: 12 * time.Hour,
	}

	if cfg.Environment == "development" {
		corsConfig.AllowOrigins = []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		}
		if cfg.FrontendURL != "" && cfg.FrontendURL != "http://localhost:3000" {
			corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, cfg.FrontendURL)
		}
		corsConfig.AllowCredentials = true
		return cors.New(corsConfig)
	}

	if cfg.FrontendURL == "" {
		// Tokens travel in headers, so no credentials are needed for open origins.
		corsConfig.AllowAllOrigins = true
		logger.Warn("FRONTEND_URL not set; allowing all origins")
		return cors.New(corsConfig)
	}

	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	corsConfig.AllowCredentials = true
	logger.Info("production allowed origins", "origins", corsConfig.AllowOrigins)
	return cors.New(corsConfig)
}
