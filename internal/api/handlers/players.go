package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/burzacoroyale/backend/internal/auth"
	"github.com/burzacoroyale/backend/internal/config"
	"github.com/burzacoroyale/backend/internal/middleware"
	"github.com/burzacoroyale/backend/internal/models"
	"github.com/burzacoroyale/backend/internal/players"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

const maxNameLength = 24

var logger = log.WithPrefix("API")

// PlayerResponse is the public view of a player, optionally with a session token.
type PlayerResponse struct {
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
	Respect     int    `json:"respect"`
	GamesPlayed int    `json:"gamesPlayed"`
	Rank        int    `json:"rank"`
	Token       string `json:"token,omitempty"`
}

func newPlayerResponse(p *models.Player, rank int) PlayerResponse {
	return PlayerResponse{
		PlayerID:    p.PlayerID,
		Name:        p.Name,
		Respect:     p.Respect,
		GamesPlayed: p.GamesPlayed,
		Rank:        rank,
	}
}

func internalError(c *gin.Context, msg string, err error) {
	logger.Error(msg, "path", c.FullPath(), "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno del servidor"})
}

// CreatePlayer creates a guest player and returns its identity with a session token.
func CreatePlayer(store *players.Store, tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := store.Create(c.Request.Context())
		if err != nil {
			internalError(c, "create player failed", err)
			return
		}

		token, err := tokens.Issue(p.PlayerID)
		if err != nil {
			internalError(c, "issue token failed", err)
			return
		}

		resp := newPlayerResponse(p, 0)
		resp.Token = token
		c.JSON(http.StatusCreated, resp)
	}
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	PlayerID string `json:"playerId"`
}

// Login resumes a session either by stored player id or by name and password.
// Repeated wrong passwords lock the account for a while.
func Login(store *players.Store, tokens *auth.Tokens, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Faltan nombre o contraseña"})
			return
		}
		ctx := c.Request.Context()

		var p *models.Player
		var err error
		if req.PlayerID != "" {
			p, err = store.FindByIdentity(ctx, req.PlayerID)
		} else {
			if strings.TrimSpace(req.Name) == "" || req.Password == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Faltan nombre o contraseña"})
				return
			}
			p, err = store.FindByName(ctx, auth.NormalizeName(req.Name))
		}
		if errors.Is(err, players.ErrPlayerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Usuario no encontrado"})
			return
		}
		if err != nil {
			internalError(c, "login lookup failed", err)
			return
		}

		if req.PlayerID == "" {
			now := time.Now()
			if p.IsLocked(now) {
				c.JSON(http.StatusLocked, gin.H{
					"error":       "Cuenta bloqueada temporalmente por demasiados intentos",
					"lockedUntil": p.LockedUntil.Time,
				})
				return
			}

			if !p.PasswordHash.Valid || !auth.CheckPassword(p.PasswordHash.String, req.Password) {
				lockUntil := now.Add(time.Duration(cfg.LoginLockMinutes) * time.Minute)
				updated, ferr := store.RecordFailedLogin(ctx, p.PlayerID, cfg.LoginMaxAttempts, lockUntil)
				if ferr != nil {
					internalError(c, "record failed login", ferr)
					return
				}
				if updated.IsLocked(now) {
					c.JSON(http.StatusLocked, gin.H{
						"error":       "Cuenta bloqueada temporalmente por demasiados intentos",
						"lockedUntil": updated.LockedUntil.Time,
					})
					return
				}
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Contraseña incorrecta"})
				return
			}

			if p.LoginAttempts > 0 || p.LockedUntil.Valid {
				if err := store.ResetLoginAttempts(ctx, p.PlayerID); err != nil {
					logger.Warn("reset login attempts failed", "player", p.PlayerID, "err", err)
				}
			}
		}

		rank, err := store.RankOf(ctx, p.PlayerID)
		if err != nil {
			internalError(c, "rank lookup failed", err)
			return
		}
		token, err := tokens.Issue(p.PlayerID)
		if err != nil {
			internalError(c, "issue token failed", err)
			return
		}

		resp := newPlayerResponse(p, rank)
		resp.Token = token
		c.JSON(http.StatusOK, resp)
	}
}

type changeNameRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// ChangeName sets the display name and password of the authenticated player.
func ChangeName(store *players.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := c.Param("id")
		if c.GetString(middleware.PlayerIDKey) != playerID {
			c.JSON(http.StatusForbidden, gin.H{"error": "No autorizado"})
			return
		}

		var req changeNameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Faltan datos"})
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" || req.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Faltan datos"})
			return
		}
		normalized := auth.NormalizeName(name)
		if normalized == "" || utf8.RuneCountInString(name) > maxNameLength {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Nombre inválido"})
			return
		}
		if err := auth.ValidatePassword(req.Password); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			internalError(c, "hash password failed", err)
			return
		}

		err = store.UpdateCredentials(c.Request.Context(), playerID, name, normalized, hash)
		switch {
		case errors.Is(err, players.ErrNameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "Ya existe un jugador con ese nombre"})
			return
		case errors.Is(err, players.ErrPlayerNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Usuario no encontrado"})
			return
		case err != nil:
			internalError(c, "update credentials failed", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Nombre actualizado correctamente", "name": name})
	}
}

// GetPlayer returns the public profile of a player with its rank.
func GetPlayer(store *players.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		p, err := store.FindByIdentity(ctx, c.Param("id"))
		if errors.Is(err, players.ErrPlayerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Usuario no encontrado"})
			return
		}
		if err != nil {
			internalError(c, "player lookup failed", err)
			return
		}
		rank, err := store.RankOf(ctx, p.PlayerID)
		if err != nil {
			internalError(c, "rank lookup failed", err)
			return
		}
		c.JSON(http.StatusOK, newPlayerResponse(p, rank))
	}
}

// GetRanking lists players with positive respect, best first.
func GetRanking(store *players.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := store.Ranking(c.Request.Context(), 100)
		if err != nil {
			internalError(c, "ranking failed", err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}
