package websocket

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"syscall"

	"nhooyr.io/websocket"

	"github.com/nerrad567/remotepad/internal/connection"
)

// clientReadLimit bounds one inbound message.
const clientReadLimit = 64 * 1024

// dialFunc opens a client connection. websocket.Dial satisfies it.
type dialFunc func(ctx context.Context, url string, opts *websocket.DialOptions) (*websocket.Conn, *http.Response, error)

// Client is the WebSocket client transport.
//
// Thread Safety:
//   - SendData is safe for concurrent use; nhooyr serializes frame writes.
type Client struct {
	cfg    connection.WebsocketConfig
	logger connection.Logger
	state  *connection.Stream[connection.State]
	data   *connection.Stream[string]
	dial   dialFunc

	mu       sync.Mutex
	conn     *websocket.Conn
	opened   bool
	closed   bool
	cancel   context.CancelFunc // aborts the dial or the read loop
	readDone chan struct{}
}

var (
	_ connection.Connection = (*Client)(nil)
	_ connection.Receiver   = (*Client)(nil)
)

// NewClient creates a WebSocket client for cfg. A nil logger discards output.
func NewClient(cfg connection.WebsocketConfig, logger connection.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: connection.OrNop(logger),
		state:  connection.NewStateStream(),
		data:   connection.NewDataStream(),
		dial:   websocket.Dial,
	}
}

// Type implements connection.Connection.
func (c *Client) Type() connection.Type { return connection.TypeWebsocket }

// States implements connection.Connection.
func (c *Client) States() connection.StateSource { return c.state }

// Received implements connection.Receiver.
func (c *Client) Received() connection.DataSource { return c.data }

// Setup performs the opening handshake within the configured timeout.
func (c *Client) Setup(ctx context.Context) {
	runCtx, cancelRun := context.WithCancel(context.Background())
	dialCtx, cancelDial := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancelDial()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancelRun()
		return
	}
	c.cancel = func() {
		cancelDial()
		cancelRun()
	}
	c.mu.Unlock()

	c.publish(connection.StateWebsocketConnecting)

	conn, resp, err := c.dial(dialCtx, c.cfg.URL, nil)
	if err != nil {
		switch {
		case errors.Is(dialCtx.Err(), context.DeadlineExceeded):
			c.handleClose(websocket.StatusAbnormalClosure, "handshake timed out")
		case peerClosedHandshake(resp, err):
			c.handleClose(websocket.StatusAbnormalClosure, err.Error())
		default:
			c.handleError(err)
		}
		return
	}

	c.handleOpen(runCtx, conn)
}

// peerClosedHandshake reports whether a failed dial reached the server and
// was then dropped or answered without a 101. Failures before any contact,
// such as DNS or a refused connect, report false.
func peerClosedHandshake(resp *http.Response, err error) bool {
	if resp != nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && (opErr.Op == "read" || opErr.Op == "write")
}

// handleOpen records the open connection and starts the read loop.
func (c *Client) handleOpen(ctx context.Context, conn *websocket.Conn) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	conn.SetReadLimit(clientReadLimit)
	c.conn = conn
	c.opened = true
	c.readDone = make(chan struct{})
	done := c.readDone
	c.publish(connection.StateWebsocketConnected)
	c.mu.Unlock()

	c.logger.Info("websocket connected", "url", c.cfg.URL)
	go c.readLoop(ctx, conn, done)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				c.handleClose(status, err.Error())
				return
			}
			if ctx.Err() != nil {
				return
			}
			c.handleError(err)
			c.handleClose(websocket.StatusAbnormalClosure, err.Error())
			return
		}
		c.handleMessage(string(msg))
	}
}

// handleMessage forwards one inbound frame to Received.
func (c *Client) handleMessage(text string) {
	c.data.Publish(text)
}

// handleError reports a transport failure.
func (c *Client) handleError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.logger.Warn("websocket error", "url", c.cfg.URL, "error", err)
	c.publish(connection.StateWebsocketError)
}

// handleClose reports the end of the connection. A close before the
// connection opened means the handshake never completed.
func (c *Client) handleClose(code websocket.StatusCode, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if !c.opened {
		c.logger.Warn("websocket closed before open", "url", c.cfg.URL, "code", int(code), "reason", reason)
		c.publish(connection.StateWebsocketConnectionTimeout)
		return
	}
	c.logger.Info("websocket closed", "code", int(code), "reason", reason)
	c.conn = nil
	c.publish(connection.StateWebsocketDisconnected)
}

// SendData writes payload as one text frame.
func (c *Client) SendData(ctx context.Context, payload string) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		c.logger.Warn("websocket send without connection")
		c.publish(connection.StateWebsocketSendFailed)
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(payload)); err != nil {
		c.logger.Error("websocket send failed", "error", err)
		c.publish(connection.StateWebsocketSendFailed)
	}
}

// TearDown sends a normal close frame and publishes WEBSOCKET_DISCONNECTED.
func (c *Client) TearDown(_ context.Context) {
	c.mu.Lock()
	c.closed = true
	conn, cancel, done := c.conn, c.cancel, c.readDone
	c.conn = nil
	c.publish(connection.StateWebsocketDisconnecting)
	c.mu.Unlock()

	if conn != nil {
		if err := conn.Close(websocket.StatusNormalClosure, "bye"); err != nil {
			c.logger.Debug("websocket close failed", "error", err)
		}
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	c.publish(connection.StateWebsocketDisconnected)
}

func (c *Client) publish(s connection.State) {
	c.logger.Debug("state changed", "state", s)
	c.state.Publish(s)
}
