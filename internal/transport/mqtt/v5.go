package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/eclipse/paho.golang/paho"
	"nhooyr.io/websocket"

	"github.com/nerrad567/remotepad/internal/connection"
)

// websocketSubprotocol is the MQTT-over-WebSocket subprotocol name.
const websocketSubprotocol = "mqtt"

// dialFunc opens the byte stream the v5 client runs over. ctx bounds the
// dial; life bounds the stream itself.
type dialFunc func(ctx, life context.Context, cfg connection.MqttConfig) (net.Conn, error)

// ClientV5 is the MQTT v5 transport.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type ClientV5 struct {
	cfg    connection.MqttConfig
	logger connection.Logger
	state  *connection.Stream[connection.State]
	data   *connection.Stream[string]
	dial   dialFunc

	mu        sync.Mutex
	client    *paho.Client
	connected bool
	closed    bool
	cancel    context.CancelFunc // ends the connection's lifetime context
}

var (
	_ connection.Connection = (*ClientV5)(nil)
	_ connection.Receiver   = (*ClientV5)(nil)
)

// NewV5 creates an MQTT v5 transport for cfg. A nil logger discards output.
func NewV5(cfg connection.MqttConfig, logger connection.Logger) *ClientV5 {
	return &ClientV5{
		cfg:    cfg,
		logger: connection.OrNop(logger),
		state:  connection.NewStateStream(),
		data:   connection.NewDataStream(),
		dial:   dialBroker,
	}
}

// Type implements connection.Connection.
func (c *ClientV5) Type() connection.Type { return connection.TypeMQTTv5 }

// States implements connection.Connection.
func (c *ClientV5) States() connection.StateSource { return c.state }

// Received implements connection.Receiver.
func (c *ClientV5) Received() connection.DataSource { return c.data }

// Setup dials the broker and performs the CONNECT/CONNACK exchange within the
// configured timeout.
func (c *ClientV5) Setup(ctx context.Context) {
	lifeCtx, cancelLife := context.WithCancel(context.Background())
	connectCtx, cancelConnect := context.WithTimeout(ctx, c.cfg.ConnectionTimeout())
	defer cancelConnect()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancelLife()
		return
	}
	c.cancel = func() {
		cancelConnect()
		cancelLife()
	}
	c.mu.Unlock()

	c.publish(connection.StateMQTTConnecting)
	c.logger.Info("mqtt connecting", "broker", brokerURL(c.cfg), "client_id", c.cfg.ClientID, "version", 5)

	conn, err := c.dial(connectCtx, lifeCtx, c.cfg)
	if err != nil {
		c.connectFailed(connectCtx, fmt.Errorf("%w: dial: %w", ErrConnectionFailed, err))
		return
	}

	client := paho.NewClient(paho.ClientConfig{
		Conn: conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			func(pr paho.PublishReceived) (bool, error) {
				c.data.Publish(string(pr.Packet.Payload))
				return true, nil
			},
		},
		OnClientError: func(err error) {
			c.handleConnectionLost(fmt.Errorf("client error: %w", err))
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			c.handleConnectionLost(fmt.Errorf("server disconnect: reason code %d", d.ReasonCode))
		},
	})

	cp := &paho.Connect{
		ClientID:   c.cfg.ClientID,
		KeepAlive:  uint16(defaultKeepAlive.Seconds()),
		CleanStart: true,
	}
	if c.cfg.UseCredentials {
		cp.Username = c.cfg.UserName
		cp.UsernameFlag = true
		if c.cfg.Password != "" {
			cp.Password = []byte(c.cfg.Password)
			cp.PasswordFlag = true
		}
	}

	ca, err := client.Connect(connectCtx, cp)
	if err != nil {
		_ = conn.Close()
		if ca != nil {
			err = fmt.Errorf("%w (reason code %d)", err, ca.ReasonCode)
		}
		c.connectFailed(connectCtx, fmt.Errorf("%w: %w", ErrConnectionFailed, err))
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = client.Disconnect(&paho.Disconnect{ReasonCode: 0})
		return
	}
	c.client = client
	c.connected = true
	c.publish(connection.StateMQTTConnected)
	c.mu.Unlock()

	c.logger.Info("mqtt connected", "broker", brokerURL(c.cfg), "version", 5)
	go c.subscribeInbound(lifeCtx, client)
}

// connectFailed publishes MQTT_CONNECTION_TIMEOUT when the connect deadline
// caused err, MQTT_ERROR otherwise. v5 does not single out authentication.
func (c *ClientV5) connectFailed(connectCtx context.Context, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	state := connection.StateMQTTError
	if isTimeout(err) || connectCtx.Err() == context.DeadlineExceeded {
		state = connection.StateMQTTConnectionTimeout
	}
	c.logger.Warn("mqtt connect failed", "broker", brokerURL(c.cfg), "state", state, "error", err)
	c.publish(state)
}

// subscribeInbound subscribes to InboundTopic after the CONNACK.
func (c *ClientV5) subscribeInbound(ctx context.Context, client *paho.Client) {
	ctx, cancel := context.WithTimeout(ctx, defaultSubscribeTimeout)
	defer cancel()

	_, err := client.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{
			{Topic: InboundTopic, QoS: byte(c.cfg.QoS)},
		},
	})
	if err != nil {
		c.logger.Warn("mqtt subscribe failed", "topic", InboundTopic,
			"error", fmt.Errorf("%w: %w", ErrSubscribeFailed, err))
	}
}

func (c *ClientV5) handleConnectionLost(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.connected {
		return
	}
	c.connected = false
	c.logger.Warn("mqtt connection lost", "error", err)
	c.publish(connection.StateMQTTConnectionLost)
}

// SendData publishes payload to the configured topic with the configured QoS.
func (c *ClientV5) SendData(ctx context.Context, payload string) {
	if err := c.send(ctx, payload); err != nil {
		c.logger.Error("mqtt publish failed", "topic", c.cfg.Topic, "error", err)
		c.publish(connection.StateMQTTPublishFailed)
	}
}

func (c *ClientV5) send(ctx context.Context, payload string) error {
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

	if _, err := client.Publish(ctx, &paho.Publish{
		Topic:   c.cfg.Topic,
		QoS:     byte(c.cfg.QoS),
		Payload: []byte(payload),
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// TearDown sends DISCONNECT and publishes MQTT_DISCONNECTED.
func (c *ClientV5) TearDown(_ context.Context) {
	c.mu.Lock()
	c.closed = true
	client, cancel := c.client, c.cancel
	c.client = nil
	c.connected = false
	c.publish(connection.StateMQTTDisconnecting)
	c.mu.Unlock()

	if client != nil {
		if err := client.Disconnect(&paho.Disconnect{ReasonCode: 0}); err != nil {
			c.logger.Debug("mqtt disconnect failed", "error", err)
		}
	}
	if cancel != nil {
		cancel()
	}

	c.logger.Info("mqtt disconnected")
	c.publish(connection.StateMQTTDisconnected)
}

func (c *ClientV5) publish(s connection.State) {
	c.logger.Debug("state changed", "state", s)
	c.state.Publish(s)
}

// dialBroker opens the transport stream for cfg: plain TCP, TLS, or a
// binary WebSocket carrying the "mqtt" subprotocol.
func dialBroker(ctx, life context.Context, cfg connection.MqttConfig) (net.Conn, error) {
	address := net.JoinHostPort(cfg.BrokerIP, strconv.Itoa(cfg.BrokerPort))

	if cfg.UseWebsocket {
		ws, _, err := websocket.Dial(ctx, brokerURL(cfg), &websocket.DialOptions{
			Subprotocols: []string{websocketSubprotocol},
		})
		if err != nil {
			return nil, err
		}
		return websocket.NetConn(life, ws, websocket.MessageBinary), nil
	}

	if tc := tlsConfig(cfg); tc != nil {
		d := tls.Dialer{Config: tc}
		return d.DialContext(ctx, "tcp", address)
	}

	var d net.Dialer
	return d.DialContext(ctx, "tcp", address)
}
