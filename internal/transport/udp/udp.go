package udp

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"

	"github.com/nerrad567/remotepad/internal/connection"
)

// errClosed is reported when SendData runs without an open socket.
var errClosed = errors.New("udp: socket not open")

// Connection is the UDP transport.
//
// Thread Safety:
//   - SendData is safe for concurrent use; one datagram is one write.
type Connection struct {
	cfg    connection.UDPConfig
	logger connection.Logger
	state  *connection.Stream[connection.State]

	// resolve looks up the destination for each datagram.
	resolve func(ctx context.Context, address string) (*net.UDPAddr, error)

	mu   sync.RWMutex
	conn net.PacketConn
}

var _ connection.Connection = (*Connection)(nil)

// New creates a UDP connection for cfg. A nil logger discards output.
func New(cfg connection.UDPConfig, logger connection.Logger) *Connection {
	return &Connection{
		cfg:     cfg,
		logger:  connection.OrNop(logger),
		state:   connection.NewStateStream(),
		resolve: resolveUDP,
	}
}

// Type implements connection.Connection.
func (c *Connection) Type() connection.Type { return connection.TypeUDP }

// States implements connection.Connection.
func (c *Connection) States() connection.StateSource { return c.state }

// Setup opens a local socket on an ephemeral port.
func (c *Connection) Setup(ctx context.Context) {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", ":0")
	if err != nil {
		c.logger.Warn("udp socket open failed", "error", err)
		c.publish(connection.StateUDPSocketFailed)
		return
	}

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info("udp socket open", "local", conn.LocalAddr().String())
	c.publish(connection.StateUDPSocketOpen)
}

// SendData resolves the destination and writes payload as one datagram.
func (c *Connection) SendData(ctx context.Context, payload string) {
	if err := c.send(ctx, payload); err != nil {
		c.logger.Warn("udp send failed", "error", err)
		c.publish(connection.StateUDPError)
	}
}

func (c *Connection) send(ctx context.Context, payload string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil {
		return errClosed
	}

	addr, err := c.resolve(ctx, net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port)))
	if err != nil {
		return err
	}

	_, err = c.conn.WriteTo([]byte(payload), addr)
	return err
}

// TearDown closes the socket and publishes UDP_DISCONNECTED.
func (c *Connection) TearDown(_ context.Context) {
	c.mu.Lock()
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("udp close failed", "error", err)
		}
		c.conn = nil
	}
	c.mu.Unlock()

	c.publish(connection.StateUDPDisconnected)
}

func (c *Connection) publish(s connection.State) {
	c.logger.Debug("state changed", "state", s)
	c.state.Publish(s)
}

func resolveUDP(ctx context.Context, address string) (*net.UDPAddr, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, &net.DNSError{Err: "no addresses", Name: host, IsNotFound: true}
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, err
	}
	return &net.UDPAddr{IP: ips[0].IP, Port: p, Zone: ips[0].Zone}, nil
}
