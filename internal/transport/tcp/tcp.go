package tcp

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"sync"

	"github.com/nerrad567/remotepad/internal/connection"
)

// Dialer opens the TCP stream. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Connection is the TCP transport.
//
// Thread Safety:
//   - SendData is safe for concurrent use; writes are serialized by writeMu.
type Connection struct {
	cfg    connection.TCPConfig
	logger connection.Logger
	dialer Dialer
	state  *connection.Stream[connection.State]

	// writeMu guards conn, w and closed. Held for the whole write+flush of one payload.
	writeMu sync.Mutex
	conn    net.Conn
	w       *bufio.Writer
	closed  bool

	// cancel aborts an in-flight dial when TearDown races Setup.
	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

var _ connection.Connection = (*Connection)(nil)

// New creates a TCP connection for cfg. A nil logger discards output.
func New(cfg connection.TCPConfig, logger connection.Logger) *Connection {
	return &Connection{
		cfg:    cfg,
		logger: connection.OrNop(logger),
		dialer: &net.Dialer{},
		state:  connection.NewStateStream(),
	}
}

// Type implements connection.Connection.
func (c *Connection) Type() connection.Type { return connection.TypeTCP }

// States implements connection.Connection.
func (c *Connection) States() connection.StateSource { return c.state }

// Setup dials the configured address within the configured timeout.
func (c *Connection) Setup(ctx context.Context) {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	c.cancelMu.Lock()
	c.cancel = cancel
	c.cancelMu.Unlock()
	defer cancel()

	c.publish(connection.StateTCPConnecting)

	address := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	conn, err := c.dialer.DialContext(dialCtx, "tcp", address)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		// TearDown already published the terminal state.
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		if isTimeout(err) || errors.Is(dialCtx.Err(), context.DeadlineExceeded) {
			c.logger.Warn("tcp connect timed out", "address", address, "timeout", c.cfg.Timeout())
			c.publish(connection.StateTCPConnectionTimeout)
			return
		}
		c.logger.Warn("tcp connect failed", "address", address, "error", err)
		c.publish(connection.StateTCPConnectionFailed)
		return
	}

	c.conn = conn
	c.w = bufio.NewWriter(conn)

	c.logger.Info("tcp connected", "address", address)
	c.publish(connection.StateTCPConnected)
}

// SendData writes payload to the stream and flushes it.
func (c *Connection) SendData(_ context.Context, payload string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.w == nil {
		c.logger.Warn("tcp send without connection")
		c.publish(connection.StateTCPError)
		return
	}

	if _, err := c.w.WriteString(payload); err != nil {
		c.sendFailed(err)
		return
	}
	if err := c.w.Flush(); err != nil {
		c.sendFailed(err)
	}
}

func (c *Connection) sendFailed(err error) {
	c.logger.Error("tcp send failed", "error", err)
	c.publish(connection.StateTCPError)
}

// TearDown flushes pending bytes, closes the socket and publishes
// TCP_DISCONNECTED whatever the outcome of the close calls.
func (c *Connection) TearDown(_ context.Context) {
	c.cancelMu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancelMu.Unlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.closed = true
	c.publish(connection.StateTCPDisconnecting)

	if c.w != nil {
		if err := c.w.Flush(); err != nil {
			c.logger.Debug("tcp flush on teardown failed", "error", err)
		}
		c.w = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("tcp close failed", "error", err)
		}
		c.conn = nil
	}

	c.publish(connection.StateTCPDisconnected)
}

func (c *Connection) publish(s connection.State) {
	c.logger.Debug("state changed", "state", s)
	c.state.Publish(s)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
