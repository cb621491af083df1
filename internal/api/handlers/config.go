package handlers

import (
	"net/http"

	"github.com/burzacoroyale/backend/internal/config"
	"github.com/gin-gonic/gin"
)

// GetConfig returns the game timing values the frontend needs
func GetConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"roundSeconds":       cfg.RoundSeconds,
			"resultGraceSeconds": cfg.ResultGraceSeconds,
			"loginMaxAttempts":   cfg.LoginMaxAttempts,
			"loginLockMinutes":   cfg.LoginLockMinutes,
		})
	}
}
