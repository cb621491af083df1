package handlers

import (
	"github.com/burzacoroyale/backend/internal/ws"
	"github.com/gin-gonic/gin"
)

// HandleGameWebSocket upgrades an authenticated request to a match connection.
func HandleGameWebSocket(h *ws.Handler) gin.HandlerFunc {
	return h.ServeWS
}
