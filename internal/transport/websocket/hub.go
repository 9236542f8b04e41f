package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/remotepad/internal/connection"
)

// Server-side connection tuning.
const (
	// sendBufferSize is the per-client outbound message buffer size.
	sendBufferSize = 256

	maxMessageSize = 64 * 1024
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
)

// hub tracks the connected clients of a Server.
type hub struct {
	logger  connection.Logger
	clients map[*client]struct{}
	closed  bool
	mu      sync.RWMutex
}

// client is one connected WebSocket peer.
type client struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
	addr string
}

func newHub(logger connection.Logger) *hub {
	return &hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// register adds c and runs start while the hub lock is held, so start can
// never race closeAll. It reports false once the hub is closed.
func (h *hub) register(c *client, start func()) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	start()
	return true
}

// unregister removes c. Only the caller that removes the client from the map
// closes its send channel, preventing double-close panics during shutdown.
func (h *hub) unregister(c *client) bool {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if existed {
		close(c.send)
	}
	return existed
}

// broadcast queues data for every client and returns the recipient count.
func (h *hub) broadcast(data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		c.trySend(data)
	}
	return len(h.clients)
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects every client and refuses further registrations.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

// trySend queues data without blocking. A full buffer drops the frame for
// this client only.
func (c *client) trySend(data []byte) {
	select {
	case c.send <- data:
	default:
		c.hub.logger.Warn("websocket client buffer full, dropping frame", "client", c.addr)
	}
}

// readPump delivers inbound text to onMessage until the peer goes away.
func (c *client) readPump(onMessage func(string), onGone func(*client)) {
	defer func() {
		onGone(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket client read error", "client", c.addr, "error", err)
			} else {
				c.hub.logger.Debug("websocket client closed", "client", c.addr, "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		onMessage(string(message))
	}
}

// writePump is the only writer of c.conn.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Warn("websocket client write failed", "client", c.addr, "error", err)
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
