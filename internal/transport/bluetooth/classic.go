package bluetooth

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/nerrad567/remotepad/internal/connection"
)

// readBufferSize bounds one inbound chunk from the RFCOMM stream.
const readBufferSize = 1024

// Classic is the Bluetooth Classic RFCOMM transport.
//
// Thread Safety:
//   - SendData is safe for concurrent use; writes are serialised so one
//     payload is never split by another.
type Classic struct {
	cfg     connection.BluetoothConfig
	adapter ClassicAdapter
	logger  connection.Logger
	state   *connection.Stream[connection.State]
	data    *connection.Stream[string]

	mu       sync.Mutex
	link     io.ReadWriteCloser
	cancel   context.CancelFunc
	closed   bool
	readDone chan struct{}

	writeMu sync.Mutex
}

var (
	_ connection.Connection = (*Classic)(nil)
	_ connection.Receiver   = (*Classic)(nil)
)

// NewClassic creates an RFCOMM connection for cfg. A nil adapter makes Setup
// fail with BLUETOOTH_CONNECTION_FAILED. A nil logger discards output.
func NewClassic(cfg connection.BluetoothConfig, adapter ClassicAdapter, logger connection.Logger) *Classic {
	return &Classic{
		cfg:     cfg,
		adapter: adapter,
		logger:  connection.OrNop(logger),
		state:   connection.NewStateStream(),
		data:    connection.NewDataStream(),
	}
}

// Type implements connection.Connection.
func (c *Classic) Type() connection.Type { return connection.TypeBluetooth }

// States implements connection.Connection.
func (c *Classic) States() connection.StateSource { return c.state }

// Received implements connection.Receiver.
func (c *Classic) Received() connection.DataSource { return c.data }

// Setup checks preconditions, then dials the paired device.
func (c *Classic) Setup(ctx context.Context) {
	if c.adapter == nil {
		c.logger.Warn("bluetooth adapter unavailable")
		c.publish(connection.StateBluetoothConnectionFailed)
		return
	}
	if !c.adapter.HasConnectPermission() {
		c.logger.Warn("bluetooth connect permission not granted")
		c.publish(connection.StateBluetoothPermissionDenied)
		return
	}

	dev, ok := c.lookupDevice()
	if !ok {
		c.logger.Warn("bluetooth device not paired", "device", c.cfg.RemoteDevice)
		c.publish(connection.StateBluetoothNoDevice)
		return
	}

	service, err := uuid.Parse(c.cfg.ServiceUUID)
	if err != nil {
		c.logger.Warn("invalid service uuid", "uuid", c.cfg.ServiceUUID, "error", err)
		c.publish(connection.StateBluetoothConnectionFailed)
		return
	}

	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.cancel = cancel
	c.mu.Unlock()

	c.publish(connection.StateBluetoothConnecting)

	link, err := c.dial(dialCtx, dev, service)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		if link != nil {
			_ = link.Close()
		}
		return
	}
	if err != nil {
		c.logger.Warn("rfcomm connect failed", "device", dev.Address, "error", err)
		c.publish(connection.StateBluetoothConnectionFailed)
		return
	}

	c.link = link
	c.readDone = make(chan struct{})
	go c.readLoop(link, c.readDone)

	c.logger.Info("rfcomm connected", "device", dev.Address, "name", dev.Name)
	c.publish(connection.StateBluetoothConnected)
}

func (c *Classic) lookupDevice() (Device, bool) {
	if c.cfg.RemoteDevice == "" {
		return Device{}, false
	}
	return c.adapter.BondedDevice(c.cfg.RemoteDevice)
}

// dial runs the blocking connect on its own goroutine and waits for it.
// A link that arrives after ctx ends is closed.
func (c *Classic) dial(ctx context.Context, dev Device, service uuid.UUID) (io.ReadWriteCloser, error) {
	type result struct {
		link io.ReadWriteCloser
		err  error
	}
	done := make(chan result, 1)
	go func() {
		link, err := c.adapter.DialRFCOMM(ctx, dev, service)
		done <- result{link, err}
	}()

	select {
	case r := <-done:
		return r.link, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.link != nil {
				_ = r.link.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func (c *Classic) readLoop(link io.Reader, done chan struct{}) {
	defer close(done)

	buf := make([]byte, readBufferSize)
	for {
		n, err := link.Read(buf)
		if n > 0 {
			c.data.Publish(string(buf[:n]))
		}
		if err == nil {
			continue
		}

		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		if errors.Is(err, io.EOF) {
			c.logger.Info("rfcomm link closed by peer")
			c.publish(connection.StateBluetoothDisconnected)
		} else {
			c.logger.Warn("rfcomm read failed", "error", err)
			c.publish(connection.StateBluetoothError)
		}
		return
	}
}

// SendData writes payload to the RFCOMM stream.
func (c *Classic) SendData(_ context.Context, payload string) {
	c.mu.Lock()
	link := c.link
	c.mu.Unlock()

	if link == nil {
		c.logger.Warn("bluetooth send failed", "error", ErrNotConnected)
		c.publish(connection.StateBluetoothError)
		return
	}

	c.writeMu.Lock()
	_, err := link.Write([]byte(payload))
	c.writeMu.Unlock()

	if err != nil {
		c.logger.Warn("bluetooth send failed", "error", err)
		c.publish(connection.StateBluetoothError)
	}
}

// TearDown closes the link and publishes BLUETOOTH_DISCONNECTED. Close
// errors are logged only.
func (c *Classic) TearDown(_ context.Context) {
	c.mu.Lock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	link, readDone := c.link, c.readDone
	c.link = nil
	c.mu.Unlock()

	if link != nil {
		if err := link.Close(); err != nil {
			c.logger.Debug("rfcomm close failed", "error", err)
		}
	}
	if readDone != nil {
		<-readDone
	}

	c.publish(connection.StateBluetoothDisconnected)
}

func (c *Classic) publish(s connection.State) {
	c.logger.Debug("state changed", "state", s)
	c.state.Publish(s)
}
