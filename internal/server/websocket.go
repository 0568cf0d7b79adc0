package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/anhnt/edge/internal/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period. A ping that is not answered
	// within writeWait closes the connection.
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// UpdateMessage is sent to preview pages when templates change.
type UpdateMessage struct {
	Type      string    `json:"type"`
	Templates []string  `json:"templates,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is one connected preview page.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub fans reload messages out to connected clients.
type Hub struct {
	logger     logging.Logger
	clients    map[*Client]bool
	mutex      sync.RWMutex
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 16),
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client. It never blocks; a message that
// does not fit in the queue is dropped.
func (h *Hub) Broadcast(ctx context.Context, msg UpdateMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(ctx, err, "cannot encode update message")
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn(ctx, nil, "broadcast queue full, dropping message", "type", msg.Type)
	}
}

// Run serves registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Debug(ctx, "client connected", "clients", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if h.clients[client] {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Debug(ctx, "client disconnected", "clients", count)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client, drop it.
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// handleWebSocket upgrades a preview page connection.
func (s *PreviewServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 32),
		hub:  s.hub,
	}

	select {
	case s.hub.register <- client:
	case <-r.Context().Done():
		conn.Close(websocket.StatusGoingAway, "")
		return
	}

	go client.writePump(s.ctx())
	client.readPump(s.ctx(), s.logger)
}

// checkOrigin accepts same-host pages and the configured origins.
func (s *PreviewServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return false
	}
	if originURL.Host == r.Host {
		return true
	}
	return s.isAllowedOrigin(origin)
}

func (s *PreviewServer) originPatterns() []string {
	patterns := make([]string, 0, len(s.config.Server.AllowedOrigins)+1)
	for _, origin := range s.config.Server.AllowedOrigins {
		if origin == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}

// readPump drains the connection so that control frames are processed. It
// returns when the peer goes away.
func (c *Client) readPump(ctx context.Context, logger logging.Logger) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-ctx.Done():
		}
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	for {
		// An expired read context closes the connection, so liveness is
		// left to the pings in writePump.
		_, _, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				logger.Debug(ctx, "websocket closed", "error", err.Error())
			}
			return
		}
	}
}

// writePump sends queued messages and keeps the connection alive.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
