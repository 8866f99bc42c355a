package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/metasched/metasched/pkg/orchestrator"
)

// WebSocket message types for the progress stream.
const (
	MessageTypeHeartbeat  = "heartbeat"
	MessageTypeProgress   = "progress"
	MessageTypeCompletion = "completion"
)

// WebSocketMessage is the envelope every message sent to a client is
// wrapped in.
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// WebSocketClient is a single connected progress-stream subscriber.
type WebSocketClient struct {
	ID   string
	Conn *websocket.Conn
	Send chan WebSocketMessage
	Hub  *WebSocketHub
}

// WebSocketHub fans ProgressEvent/CompletionEvent out from the
// orchestrator to every connected client.
type WebSocketHub struct {
	clients    map[*WebSocketClient]bool
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	orch       *orchestrator.Orchestrator
	logger     *slog.Logger
	mu         sync.RWMutex
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewWebSocketHub creates a hub that relays orch's progress/completion
// channels to connected clients.
func NewWebSocketHub(logger *slog.Logger, orch *orchestrator.Orchestrator) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*WebSocketClient]bool),
		register:   make(chan *WebSocketClient),
		unregister: make(chan *WebSocketClient),
		orch:       orch,
		logger:     logger,
	}
}

// Run relays orchestrator events to connected clients until ctx is
// cancelled.
func (h *WebSocketHub) Run(ctx context.Context) {
	h.logger.Info("websocket progress hub started")
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("websocket client connected", "client_id", client.ID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()

		case event := <-h.orch.Progress():
			h.broadcast(WebSocketMessage{Type: MessageTypeProgress, Timestamp: time.Now(), Data: event})

		case event := <-h.orch.Completed():
			h.broadcast(WebSocketMessage{Type: MessageTypeCompletion, Timestamp: time.Now(), Data: event})

		case <-heartbeat.C:
			h.broadcast(WebSocketMessage{Type: MessageTypeHeartbeat, Timestamp: time.Now()})
		}
	}
}

func (h *WebSocketHub) broadcast(message WebSocketMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.Send <- message:
		default:
			h.logger.Warn("client send buffer full, dropping message", "client_id", client.ID)
		}
	}
}

func (h *WebSocketHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.Conn.Close()
		close(client.Send)
		delete(h.clients, client)
	}
}

// progressWebsocketHandler upgrades a connection and subscribes it to the
// orchestrator's progress/completion stream.
func (s *Server) progressWebsocketHandler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("failed to upgrade websocket connection", "error", err)
		return
	}

	client := &WebSocketClient{
		ID:   uuid.New().String(),
		Conn: conn,
		Send: make(chan WebSocketMessage, 64),
		Hub:  s.websocket,
	}

	s.websocket.register <- client
	go client.writePump()
	go client.readPump(s.logger)
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains and discards client frames (the progress stream is
// one-directional); it exists to detect disconnects and service pings.
func (c *WebSocketClient) readPump(logger *slog.Logger) {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("websocket read error", "error", err, "client_id", c.ID)
			}
			break
		}
	}
}
