package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/orgpulse/orgpulse/server/internal/store"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

// EventReport is the event name of report messages.
const EventReport = "report"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins; the HTTP API is served with permissive CORS as well.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string        `json:"event"`
	Data  *store.Report `json:"data"`
}

// Hub manages WebSocket client connections and broadcasts the latest
// organization report to all connected clients.
type Hub struct {
	store    *store.Store
	interval time.Duration
	notify   chan struct{}

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub that reads from st and broadcasts every interval.
func New(st *store.Store, interval time.Duration) *Hub {
	return &Hub{
		store:    st,
		interval: interval,
		notify:   make(chan struct{}, 1),
		clients:  make(map[*client]struct{}),
	}
}

// Run starts the broadcast loop. It sends the latest report to all connected
// clients every interval and whenever Notify is called. Run blocks until ctx
// is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			h.broadcast()
		case <-h.notify:
			h.broadcast()
		}
	}
}

// Notify asks Run to broadcast now. It never blocks; notifications that
// arrive while one is pending are merged.
func (h *Hub) Notify() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// The latest report, if any, is sent immediately on connect. Blocks until the
// connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.unregister(c)

	if data, ok := h.buildMessage(); ok {
		select {
		case c.send <- data:
		default:
		}
	}

	go c.writePump()
	c.readPump() // blocks until connection closes
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

func (h *Hub) broadcast() {
	data, ok := h.buildMessage()
	if !ok {
		return
	}

	// Sends happen under the read lock so unregister cannot close a channel
	// mid-send; slow clients are dropped afterwards.
	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.unregister(c)
	}
}

// buildMessage encodes the latest live report. ok is false when there is none.
func (h *Hub) buildMessage() ([]byte, bool) {
	e, ok := h.store.Latest()
	if !ok {
		return nil, false
	}
	data, err := json.Marshal(Message{Event: EventReport, Data: e.Report})
	if err != nil {
		return nil, false
	}
	return data, true
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages (pong,
// close) and detect disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
