package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/burzacoroyale/backend/internal/game"
	"github.com/burzacoroyale/backend/internal/results"
	"github.com/gin-gonic/gin"
)

// ResultLoader reads archived settlement results.
type ResultLoader interface {
	Load(ctx context.Context, matchID string) (*game.Result, error)
}

// MatchLookup exposes the in-memory view of live and recently settled matches.
type MatchLookup interface {
	GetMatch(matchID string) (game.MatchSnapshot, error)
	Status() game.QueueStatus
}

// GetMatchResult returns a settled match result. The archive is checked
// first; a match still held in memory is served from there.
func GetMatchResult(archive ResultLoader, matches MatchLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID := c.Param("id")

		res, err := archive.Load(c.Request.Context(), matchID)
		if err == nil {
			c.JSON(http.StatusOK, res)
			return
		}
		if !errors.Is(err, results.ErrNotFound) {
			logger.Warn("archive lookup failed", "match", matchID, "err", err)
		}

		snap, err := matches.GetMatch(matchID)
		if errors.Is(err, game.ErrMatchNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Partida no encontrada"})
			return
		}
		if err != nil {
			internalError(c, "match lookup failed", err)
			return
		}
		if snap.Result == nil {
			c.JSON(http.StatusAccepted, snap)
			return
		}
		c.JSON(http.StatusOK, snap.Result)
	}
}

// GetQueueStatus reports how many connections wait and how many matches are live.
func GetQueueStatus(matches MatchLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, matches.Status())
	}
}
