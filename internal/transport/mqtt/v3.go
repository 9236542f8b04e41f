package mqtt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"

	"github.com/nerrad567/remotepad/internal/connection"
)

// ClientV3 is the MQTT v3.1.1 transport.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Inbound messages are delivered in broker order.
type ClientV3 struct {
	cfg    connection.MqttConfig
	logger connection.Logger
	state  *connection.Stream[connection.State]
	data   *connection.Stream[string]

	// newClient is replaceable in tests.
	newClient func(*pahomqtt.ClientOptions) pahomqtt.Client

	mu        sync.Mutex
	client    pahomqtt.Client
	connected bool
	closed    bool
}

var (
	_ connection.Connection = (*ClientV3)(nil)
	_ connection.Receiver   = (*ClientV3)(nil)
)

// NewV3 creates an MQTT v3 transport for cfg. A nil logger discards output.
func NewV3(cfg connection.MqttConfig, logger connection.Logger) *ClientV3 {
	return &ClientV3{
		cfg:       cfg,
		logger:    connection.OrNop(logger),
		state:     connection.NewStateStream(),
		data:      connection.NewDataStream(),
		newClient: pahomqtt.NewClient,
	}
}

// Type implements connection.Connection.
func (c *ClientV3) Type() connection.Type { return connection.TypeMQTTv3 }

// States implements connection.Connection.
func (c *ClientV3) States() connection.StateSource { return c.state }

// Received implements connection.Receiver.
func (c *ClientV3) Received() connection.DataSource { return c.data }

// Setup connects to the broker. It returns after MQTT_CONNECTED or a
// failure state has been published.
func (c *ClientV3) Setup(ctx context.Context) {
	opts := buildClientOptions(c.cfg)

	// connected is closed by the connect handler once MQTT_CONNECTED is out.
	connected := make(chan struct{})
	var once sync.Once
	opts.SetOnConnectHandler(func(client pahomqtt.Client) {
		c.handleConnect(client)
		once.Do(func() { close(connected) })
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleConnectionLost(err)
	})

	client := c.newClient(opts)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.client = client
	c.mu.Unlock()

	c.publish(connection.StateMQTTConnecting)
	c.logger.Info("mqtt connecting", "broker", brokerURL(c.cfg), "client_id", c.cfg.ClientID)

	token := client.Connect()
	timeout := c.cfg.ConnectionTimeout()
	if !token.WaitTimeout(timeout) {
		c.connectFailed(connection.StateMQTTConnectionTimeout,
			fmt.Errorf("%w: timeout after %v", ErrTimeout, timeout))
		return
	}
	if err := token.Error(); err != nil {
		var rc byte
		if ct, ok := token.(*pahomqtt.ConnectToken); ok {
			rc = ct.ReturnCode()
		}
		c.connectFailed(classifyConnectError(rc, err), fmt.Errorf("%w: %w", ErrConnectionFailed, err))
		return
	}

	select {
	case <-connected:
	case <-time.After(timeout):
		// CONNACK arrived but the connect handler never ran.
		c.connectFailed(connection.StateMQTTError,
			fmt.Errorf("%w: no connect callback within %v", ErrConnectionFailed, timeout))
		go client.Disconnect(0)
	case <-ctx.Done():
	}
}

// classifyConnectError maps a failed v3 connect onto a state.
// Return codes 4 and 5 are authentication refusals.
func classifyConnectError(rc byte, err error) connection.State {
	switch {
	case rc == packets.ErrRefusedBadUsernameOrPassword,
		rc == packets.ErrRefusedNotAuthorised,
		errors.Is(err, packets.ConnErrors[packets.ErrRefusedBadUsernameOrPassword]),
		errors.Is(err, packets.ConnErrors[packets.ErrRefusedNotAuthorised]):
		return connection.StateMQTTAuthFailed
	case isTimeout(err):
		return connection.StateMQTTConnectionTimeout
	default:
		return connection.StateMQTTError
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// connectFailed publishes state and abandons the client, so a late
// CONNACK cannot resurrect it.
func (c *ClientV3) connectFailed(state connection.State, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client = nil
	if c.closed {
		return
	}
	c.logger.Warn("mqtt connect failed", "broker", brokerURL(c.cfg), "state", state, "error", err)
	c.publish(state)
}

// handleConnect runs once the broker has acknowledged the connection.
// The inbound subscription is issued here, never before the CONNACK.
func (c *ClientV3) handleConnect(client pahomqtt.Client) {
	c.mu.Lock()
	if c.closed || c.client != client {
		c.mu.Unlock()
		go client.Disconnect(0)
		return
	}
	c.connected = true
	c.publish(connection.StateMQTTConnected)
	c.mu.Unlock()

	c.logger.Info("mqtt connected", "broker", brokerURL(c.cfg))

	token := client.Subscribe(InboundTopic, byte(c.cfg.QoS), c.handleMessage)
	go func() {
		if !token.WaitTimeout(defaultSubscribeTimeout) {
			c.logger.Warn("mqtt subscribe timed out", "topic", InboundTopic)
			return
		}
		if err := token.Error(); err != nil {
			c.logger.Warn("mqtt subscribe failed", "topic", InboundTopic,
				"error", fmt.Errorf("%w: %w", ErrSubscribeFailed, err))
		}
	}()
}

func (c *ClientV3) handleMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	c.data.Publish(string(msg.Payload()))
}

// handleConnectionLost reports a broker drop. There is no reconnect.
func (c *ClientV3) handleConnectionLost(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.connected = false
	c.logger.Warn("mqtt connection lost", "error", err)
	c.publish(connection.StateMQTTConnectionLost)
}

// SendData publishes payload to the configured topic with the configured QoS.
func (c *ClientV3) SendData(ctx context.Context, payload string) {
	if err := c.send(ctx, payload); err != nil {
		c.logger.Error("mqtt publish failed", "topic", c.cfg.Topic, "error", err)
		c.publish(connection.StateMQTTPublishFailed)
	}
}

func (c *ClientV3) send(ctx context.Context, payload string) error {
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrPayloadTooLarge, len(payload), maxPayloadSize)
	}

	c.mu.Lock()
	client, connected := c.client, c.connected
	c.mu.Unlock()
	if client == nil || !connected {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	token := client.Publish(c.cfg.Topic, byte(c.cfg.QoS), false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrPublishFailed, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// TearDown disconnects from the broker and publishes MQTT_DISCONNECTED.
func (c *ClientV3) TearDown(_ context.Context) {
	c.mu.Lock()
	c.closed = true
	client := c.client
	c.client = nil
	c.connected = false
	c.publish(connection.StateMQTTDisconnecting)
	c.mu.Unlock()

	if client != nil && client.IsConnectionOpen() {
		client.Disconnect(defaultDisconnectQuiesce)
	}

	c.logger.Info("mqtt disconnected")
	c.publish(connection.StateMQTTDisconnected)
}

func (c *ClientV3) publish(s connection.State) {
	c.logger.Debug("state changed", "state", s)
	c.state.Publish(s)
}
