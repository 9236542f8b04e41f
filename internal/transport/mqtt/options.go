package mqtt

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/remotepad/internal/connection"
)

// Connection constants.
const (
	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultSubscribeTimeout is the maximum time to wait for a SUBACK.
	defaultSubscribeTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 250 // milliseconds

	// connectTimeoutSlack extends paho's connect timeout past the configured one.
	connectTimeoutSlack = time.Second

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 30 * time.Second

	// maxPayloadSize prevents resource exhaustion and aligns with typical broker limits.
	maxPayloadSize = 1 << 20 // 1MB

	// protocolVersion311 is the CONNECT protocol level for MQTT 3.1.1.
	protocolVersion311 = 4

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// brokerURL composes the broker URL from the scheme flags of cfg.
func brokerURL(cfg connection.MqttConfig) string {
	var scheme string
	switch {
	case cfg.UseWebsocket && cfg.UseSSL:
		scheme = "wss"
	case cfg.UseWebsocket:
		scheme = "ws"
	case cfg.UseSSL:
		scheme = "ssl"
	default:
		scheme = "tcp"
	}

	url := fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(cfg.BrokerIP, strconv.Itoa(cfg.BrokerPort)))
	if cfg.UseWebsocket {
		url += websocketPath
	}
	return url
}

// tlsConfig returns the client TLS settings, or nil when SSL is off.
func tlsConfig(cfg connection.MqttConfig) *tls.Config {
	if !cfg.UseSSL {
		return nil
	}
	return &tls.Config{
		MinVersion: tlsMinVersion,
		ServerName: cfg.BrokerIP,
	}
}

// buildClientOptions creates paho v3 options from cfg.
//
// This configures:
//   - Broker URL (tcp, ssl, ws or wss from the scheme flags)
//   - Client ID for identification
//   - Authentication credentials (if enabled)
//   - Protocol level 4 (3.1.1) only, with no fallback to 3.1
//   - No auto-reconnect and no connect retry
//   - TLS configuration (if enabled)
//   - Clean session mode
func buildClientOptions(cfg connection.MqttConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(brokerURL(cfg))
	opts.SetClientID(cfg.ClientID)

	if cfg.UseCredentials {
		opts.SetUsername(cfg.UserName)
		opts.SetPassword(cfg.Password)
	}

	// Pinned, so a refusal CONNACK is final instead of a retry at level 3.
	opts.SetProtocolVersion(protocolVersion311)

	// Clean session - start fresh on connect (no persistent session on broker)
	opts.SetCleanSession(true)

	// Every disconnect is terminal; the caller decides whether to retry.
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	// paho's own deadline trails the token wait in Setup, so the timeout
	// state is decided in one place.
	opts.SetConnectTimeout(cfg.ConnectionTimeout() + connectTimeoutSlack)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetOrderMatters(true)

	if tc := tlsConfig(cfg); tc != nil {
		opts.SetTLSConfig(tc)
	}

	return opts
}
