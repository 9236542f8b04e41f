package mqtt

import (
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/eclipse/paho.mqtt.golang/packets"

	"github.com/nerrad567/remotepad/internal/connection"
)

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		name         string
		useSSL       bool
		useWebsocket bool
		want         string
	}{
		{"plain", false, false, "tcp://10.0.0.2:1883"},
		{"ssl", true, false, "ssl://10.0.0.2:1883"},
		{"websocket", false, true, "ws://10.0.0.2:1883/mqtt"},
		{"secure websocket", true, true, "wss://10.0.0.2:1883/mqtt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := connection.DefaultMqttConfig()
			cfg.BrokerIP = "10.0.0.2"
			cfg.UseSSL = tt.useSSL
			cfg.UseWebsocket = tt.useWebsocket

			if got := brokerURL(cfg); got != tt.want {
				t.Errorf("brokerURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBrokerURLIPv6(t *testing.T) {
	cfg := connection.DefaultMqttConfig()
	cfg.BrokerIP = "fd00::1"

	if got, want := brokerURL(cfg), "tcp://[fd00::1]:1883"; got != want {
		t.Errorf("brokerURL() = %q, want %q", got, want)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := connection.DefaultMqttConfig()
	cfg.ClientID = "pad-01"
	cfg.ConnectionTimeoutSecs = 3

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://broker.hivemq.com:1883" {
		t.Errorf("Servers = %v, want [tcp://broker.hivemq.com:1883]", opts.Servers)
	}
	if opts.ClientID != "pad-01" {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, "pad-01")
	}
	if opts.AutoReconnect {
		t.Error("AutoReconnect = true, want false")
	}
	if opts.ConnectRetry {
		t.Error("ConnectRetry = true, want false")
	}
	if !opts.CleanSession {
		t.Error("CleanSession = false, want true")
	}
	if opts.ProtocolVersion != 4 {
		t.Errorf("ProtocolVersion = %d, want 4", opts.ProtocolVersion)
	}
	if opts.ConnectTimeout != 3*time.Second+connectTimeoutSlack {
		t.Errorf("ConnectTimeout = %v, want %v", opts.ConnectTimeout, 3*time.Second+connectTimeoutSlack)
	}
	if opts.Username != "" || opts.Password != "" {
		t.Errorf("credentials set without useCredentials: %q/%q", opts.Username, opts.Password)
	}
	if opts.TLSConfig != nil && opts.TLSConfig.ServerName != "" {
		t.Error("TLS configured without useSSL")
	}
}

func TestBuildClientOptionsCredentialsAndTLS(t *testing.T) {
	cfg := connection.DefaultMqttConfig()
	cfg.UseCredentials = true
	cfg.UserName = "alice"
	cfg.Password = "s3cret"
	cfg.UseSSL = true

	opts := buildClientOptions(cfg)

	if opts.Username != "alice" || opts.Password != "s3cret" {
		t.Errorf("credentials = %q/%q, want alice/s3cret", opts.Username, opts.Password)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Errorf("TLSConfig = %+v, want MinVersion TLS1.2", opts.TLSConfig)
	}
	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
}

func TestBuildClientOptionsDoesNotMutateConfig(t *testing.T) {
	cfg := connection.DefaultMqttConfig()
	cfg.UseWebsocket = true
	before := cfg

	_ = buildClientOptions(cfg)
	_ = brokerURL(cfg)

	if cfg != before {
		t.Errorf("config mutated: %+v, want %+v", cfg, before)
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

func TestClassifyConnectError(t *testing.T) {
	tests := []struct {
		name string
		rc   byte
		err  error
		want connection.State
	}{
		{"bad credentials code", packets.ErrRefusedBadUsernameOrPassword, errors.New("refused"), connection.StateMQTTAuthFailed},
		{"not authorised code", packets.ErrRefusedNotAuthorised, errors.New("refused"), connection.StateMQTTAuthFailed},
		{"not authorised error", packets.ErrNetworkError,
			fmt.Errorf("connect: %w", packets.ConnErrors[packets.ErrRefusedNotAuthorised]), connection.StateMQTTAuthFailed},
		{"socket timeout", packets.ErrNetworkError, fmt.Errorf("dial: %w", timeoutError{}), connection.StateMQTTConnectionTimeout},
		{"token timeout", 0, ErrTimeout, connection.StateMQTTConnectionTimeout},
		{"identifier rejected", packets.ErrRefusedIDRejected, errors.New("identifier rejected"), connection.StateMQTTError},
		{"server unavailable", packets.ErrRefusedServerUnavailable, errors.New("unavailable"), connection.StateMQTTError},
		{"refused socket", packets.ErrNetworkError, errors.New("connection refused"), connection.StateMQTTError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyConnectError(tt.rc, tt.err); got != tt.want {
				t.Errorf("classifyConnectError(%d, %v) = %v, want %v", tt.rc, tt.err, got, tt.want)
			}
		})
	}
}
