package mqtt

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/remotepad/internal/connection"
	"github.com/nerrad567/remotepad/internal/connection/connectiontest"
)

// localBroker is the Mosquitto instance used by the round-trip tests.
const localBroker = "127.0.0.1:1883"

// brokerConfig returns a config for the local broker, or skips the test
// when nothing is listening there.
func brokerConfig(t *testing.T, clientID string) connection.MqttConfig {
	t.Helper()
	conn, err := net.DialTimeout("tcp", localBroker, 500*time.Millisecond)
	if err != nil {
		t.Skipf("no MQTT broker at %s: %v", localBroker, err)
	}
	_ = conn.Close()

	cfg := connection.DefaultMqttConfig()
	cfg.BrokerIP = "127.0.0.1"
	cfg.BrokerPort = 1883
	cfg.ClientID = clientID
	cfg.QoS = 1
	// Publish straight back to the inbound topic to observe a round trip.
	cfg.Topic = InboundTopic
	return cfg
}

type duplex interface {
	connection.Connection
	connection.Receiver
}

func TestBrokerRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		new  func(connection.MqttConfig) duplex
	}{
		{"v3", func(cfg connection.MqttConfig) duplex { return NewV3(cfg, nil) }},
		{"v5", func(cfg connection.MqttConfig) duplex { return NewV5(cfg, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.new(brokerConfig(t, "remotepad-test-"+tt.name))
			data := connectiontest.Record(t, c.Received())

			c.Setup(context.Background())
			require.Equal(t, connection.StateMQTTConnected, c.States().Current())
			defer c.TearDown(context.Background())

			// The subscription is issued after CONNACK; resend until it is live.
			assert.Eventually(t, func() bool {
				c.SendData(context.Background(), "ping-"+tt.name)
				return len(data.Values()) > 0
			}, connectiontest.Timeout, 100*time.Millisecond)
			assert.Equal(t, "ping-"+tt.name, data.Values()[0])
		})
	}
}
