package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/burzacoroyale/backend/internal/game"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced on the HTTP routes
	},
}

// Client represents a connected WebSocket client
type Client struct {
	hub      *Hub
	mm       Matchmaker
	conn     *websocket.Conn
	id       game.ConnID
	playerID string
	send     chan []byte
}

// Hub maintains the set of active clients and delivers events to them.
// It implements game.Notifier.
type Hub struct {
	clients map[game.ConnID]*Client
	closed  bool
	mu      sync.RWMutex
	logger  *log.Logger
}

var _ game.Notifier = (*Hub)(nil)

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[game.ConnID]*Client),
		logger:  log.WithPrefix("WS"),
	}
}

// Run blocks until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
	h.logger.Info("hub stopped")
}

// add registers client unless the hub already stopped.
func (h *Hub) add(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[client.id] = client
	h.logger.Info("client connected", "conn", client.id, "player", client.playerID, "clients", len(h.clients))
	return true
}

// remove unregisters client synchronously, so events sent after it returns
// are reported as undeliverable.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[client.id]; ok && cur == client {
		delete(h.clients, client.id)
		close(client.send)
		h.logger.Info("client disconnected", "conn", client.id, "player", client.playerID)
	}
}

// Notify sends an event to one connection. It returns false when the
// connection is gone or its buffer is full.
func (h *Hub) Notify(conn game.ConnID, event game.Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal event failed", "type", event.Type, "err", err)
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	client, exists := h.clients[conn]
	if !exists {
		h.logger.Debug("no client for event", "conn", conn, "type", event.Type)
		return false
	}
	select {
	case client.send <- data:
		return true
	default:
		h.logger.Warn("send buffer full, dropping event", "conn", conn, "type", event.Type)
		return false
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Message is the client to server envelope.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Debug("write error", "conn", c.id, "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.logger.Debug("ping error", "conn", c.id, "err", err)
				return
			}
		}
	}
}
