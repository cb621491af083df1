package middleware

import (
	"net/http"
	"strings"

	"github.com/burzacoroyale/backend/internal/auth"
	"github.com/gin-gonic/gin"
)

// PlayerIDKey is the gin context key holding the authenticated player identity.
const PlayerIDKey = "player_id"

// RequireSession validates the bearer session token and stores its player
// identity under PlayerIDKey.
func RequireSession(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No autenticado"})
			c.Abort()
			return
		}

		playerID, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token inválido o expirado"})
			c.Abort()
			return
		}

		c.Set(PlayerIDKey, playerID)
		c.Next()
	}
}
