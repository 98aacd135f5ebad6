// Package ws streams rendered dashboards to UI clients over WebSocket.
// A client connects to /ws/dashboards/{id}; every tick the hub renders each
// dashboard that has at least one subscriber and fans the result out. A
// panel in an error state streams like any other render — connectivity
// problems degrade panels, never the stream.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pulsestack/pulsestack/board/internal/dashboard"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often ping frames go out. Must be less than
	// pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins — callers should apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients on every render tick.
type Message struct {
	Event string              `json:"event"`
	Data  *dashboard.Rendered `json:"data"`
}

// Hub manages WebSocket subscriptions keyed by dashboard ID.
type Hub struct {
	renderer *dashboard.Renderer
	interval time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket subscriber.
type client struct {
	dashID int64
	conn   *websocket.Conn
	send   chan []byte
}

// New creates a Hub that renders through r every interval.
func New(r *dashboard.Renderer, interval time.Duration) *Hub {
	return &Hub{
		renderer: r,
		interval: interval,
		clients:  make(map[*client]struct{}),
	}
}

// Run starts the render/broadcast loop. It blocks until ctx is cancelled,
// then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			h.broadcast(ctx)
		}
	}
}

// ServeHTTP upgrades the connection and subscribes it to the dashboard
// named in the path (/ws/dashboards/{id}). The first render is sent
// immediately so the UI has data before the first tick.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/ws/dashboards/")
	dashID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid dashboard id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		dashID: dashID,
		conn:   conn,
		send:   make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.unregister(c)

	if data, err := h.renderMessage(r.Context(), dashID); err == nil {
		h.send(c, data)
	}

	go c.writePump()
	c.readPump() // blocks until the connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// broadcast renders each subscribed dashboard once and fans the payload out
// to its subscribers.
func (h *Hub) broadcast(ctx context.Context) {
	h.mu.RLock()
	byDash := make(map[int64][]*client)
	for c := range h.clients {
		byDash[c.dashID] = append(byDash[c.dashID], c)
	}
	h.mu.RUnlock()

	for dashID, targets := range byDash {
		data, err := h.renderMessage(ctx, dashID)
		if err != nil {
			slog.Warn("ws: render failed", "dashboard", dashID, "err", err)
			continue
		}
		for _, c := range targets {
			h.send(c, data)
		}
	}
}

// send delivers data to c if it is still registered. The membership check
// and the channel send happen under the same lock acquisition as
// unregister's close, so a client that disconnected while a render was in
// flight is skipped rather than written to a closed channel.
func (h *Hub) send(c *client, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		// Client's outgoing buffer is full — disconnect it.
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) renderMessage(ctx context.Context, dashID int64) ([]byte, error) {
	rendered, err := h.renderer.Render(ctx, dashID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Event: "dashboard", Data: rendered})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// writePump drains the client's send channel onto the connection and sends
// periodic ping frames. Runs in its own goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if !ok {
				// Channel was closed (hub shutdown or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes control frames (pong, close) and detects disconnects.
// Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
