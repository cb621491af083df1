package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/burzacoroyale/backend/internal/auth"
	"github.com/burzacoroyale/backend/internal/game"
	"github.com/burzacoroyale/backend/internal/players"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client to server message types.
const (
	MsgRequestMatch = "requestMatch"
	MsgSubmitResult = "submitResult"
	MsgPing         = "ping"
)

const (
	msgAlreadyQueued  = "Ya estás buscando combate o jugando una partida"
	msgInvalidTaps    = "Número de toques inválido"
	msgInvalidMessage = "Mensaje inválido"
	msgUnknownType    = "Tipo de mensaje desconocido"
)

// Matchmaker is the part of the match manager the transport drives.
type Matchmaker interface {
	Connect(conn game.ConnID, playerID string)
	RequestMatch(ctx context.Context, conn game.ConnID) (*game.Match, error)
	SubmitResult(ctx context.Context, conn game.ConnID, taps int) error
	Disconnect(ctx context.Context, conn game.ConnID)
}

type SubmitResultData struct {
	Taps *int `json:"taps"`
}

// Handler upgrades authenticated HTTP requests to match connections.
type Handler struct {
	ctx    context.Context
	hub    *Hub
	mm     Matchmaker
	tokens *auth.Tokens
	store  game.PlayerStore
}

// NewHandler wires the transport. ctx bounds the lifetime of every
// connection's match calls.
func NewHandler(ctx context.Context, hub *Hub, mm Matchmaker, tokens *auth.Tokens, store game.PlayerStore) *Handler {
	return &Handler{ctx: ctx, hub: hub, mm: mm, tokens: tokens, store: store}
}

// Authenticate resolves the player identity of a connection attempt from the
// token query parameter or a bearer Authorization header.
func (h *Handler) Authenticate(r *http.Request) (string, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		return "", auth.ErrInvalidToken
	}
	return h.tokens.Parse(token)
}

// ServeWS handles GET /ws?token=<session token>.
func (h *Handler) ServeWS(c *gin.Context) {
	playerID, err := h.Authenticate(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token inválido o expirado"})
		return
	}

	p, err := h.store.FindByIdentity(c.Request.Context(), playerID)
	if errors.Is(err, players.ErrPlayerNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuario no encontrado"})
		return
	}
	if err != nil {
		h.hub.logger.Error("player lookup failed", "player", playerID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno del servidor"})
		return
	}
	rank, err := h.store.RankOf(c.Request.Context(), playerID)
	if err != nil {
		h.hub.logger.Warn("rank lookup failed", "player", playerID, "err", err)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.logger.Error("upgrade error", "err", err)
		return
	}

	client := &Client{
		hub:      h.hub,
		mm:       h.mm,
		conn:     conn,
		id:       game.ConnID(uuid.NewString()),
		playerID: playerID,
		send:     make(chan []byte, sendBuffer),
	}

	// Queued before registration so it is always the first frame.
	welcome, _ := json.Marshal(game.Event{Type: game.EventWelcome, Data: game.WelcomePayload{
		PlayerID:    p.PlayerID,
		Name:        p.Name,
		Respect:     p.Respect,
		GamesPlayed: p.GamesPlayed,
		Rank:        rank,
	}})
	client.send <- welcome

	if !h.hub.add(client) {
		conn.Close()
		return
	}
	h.mm.Connect(client.id, playerID)

	go client.writePump()
	go client.readPump(h.ctx)
}

// readPump reads client messages until the connection closes, then
// reconciles the connection with the match manager.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.remove(c)
		c.mm.Disconnect(ctx, c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close", "conn", c.id, "player", c.playerID, "err", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError(msgInvalidMessage)
			continue
		}
		c.handleMessage(ctx, msg)
	}
}

// handleMessage dispatches one client envelope.
func (c *Client) handleMessage(ctx context.Context, msg Message) {
	switch msg.Type {
	case MsgRequestMatch:
		_, err := c.mm.RequestMatch(ctx, c.id)
		switch {
		case errors.Is(err, game.ErrAlreadyQueued):
			c.sendError(msgAlreadyQueued)
		case err != nil:
			c.hub.logger.Warn("match request failed", "conn", c.id, "err", err)
		}

	case MsgSubmitResult:
		var data SubmitResultData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Taps == nil {
			c.sendError(msgInvalidTaps)
			return
		}
		err := c.mm.SubmitResult(ctx, c.id, *data.Taps)
		switch {
		case errors.Is(err, game.ErrInvalidTapCount):
			c.sendError(msgInvalidTaps)
		case game.IsSilent(err):
			c.hub.logger.Debug("result ignored", "conn", c.id, "err", err)
		case err != nil:
			c.hub.logger.Warn("submit failed", "conn", c.id, "err", err)
		}

	case MsgPing:
		c.hub.Notify(c.id, game.Event{Type: game.EventPong, Data: struct{}{}})

	default:
		c.sendError(msgUnknownType)
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.hub.Notify(c.id, game.ErrorEvent(message))
}
