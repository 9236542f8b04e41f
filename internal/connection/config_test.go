package connection

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toggled returns, for every transport, a config with every optional field
// and flag moved away from its default.
func toggled() map[Type]Config {
	return map[Type]Config{
		TypeTCP: TCPConfig{Host: "10.0.0.7", Port: 9999, TimeoutSecs: 2},
		TypeUDP: UDPConfig{Host: "pad.local", Port: 5005},
		TypeWebsocket: WebsocketConfig{
			URL:         "wss://example.org:8443/pad",
			TimeoutSecs: 30,
		},
		TypeWebsocketServer: WebsocketServerConfig{Port: 9001, UseWifiInterface: false},
		TypeMQTTv3: MqttConfig{
			BrokerIP:              "10.0.0.2",
			BrokerPort:            8883,
			ClientID:              "pad-01",
			Topic:                 "home/pad",
			QoS:                   2,
			UseSSL:                true,
			UseWebsocket:          true,
			UseCredentials:        true,
			UserName:              "alice",
			Password:              "s3cret",
			ConnectionTimeoutSecs: 3,
		},
		TypeBluetooth: BluetoothConfig{
			ServiceUUID:  "94f39d29-7d6d-437d-973b-fba39e49d4ee",
			RemoteDevice: "AA:BB:CC:DD:EE:FF",
		},
		TypeBluetoothLE: BluetoothLEConfig{
			ServiceUUID:                  "6e400001-b5a3-f393-e0a9-e50e24dcca9e",
			CharacteristicUUID:           "6e400003-b5a3-f393-e0a9-e50e24dcca9e",
			CharacteristicDescriptorUUID: ClientConfigDescriptorUUID,
		},
	}
}

func TestConfigRoundTripDefaults(t *testing.T) {
	for _, typ := range Types() {
		t.Run(typ.String(), func(t *testing.T) {
			cfg, err := DefaultConfig(typ)
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())

			data, err := EncodeConfig(cfg)
			require.NoError(t, err)

			decoded, err := DecodeConfig(typ, data)
			require.NoError(t, err)
			assert.Equal(t, cfg, decoded)
		})
	}
}

func TestConfigRoundTripToggled(t *testing.T) {
	for typ, cfg := range toggled() {
		t.Run(typ.String(), func(t *testing.T) {
			require.NoError(t, cfg.Validate())

			data, err := EncodeConfig(cfg)
			require.NoError(t, err)

			decoded, err := DecodeConfig(typ, data)
			require.NoError(t, err)
			assert.Equal(t, cfg, decoded)
		})
	}
}

func TestDecodeConfigKeepsDefaultsForMissingFields(t *testing.T) {
	cfg, err := DecodeConfig(TypeTCP, []byte(`{"host":"127.0.0.1"}`))
	require.NoError(t, err)

	tcp := cfg.(TCPConfig)
	assert.Equal(t, "127.0.0.1", tcp.Host)
	assert.Equal(t, 8080, tcp.Port)
	assert.Equal(t, 5, tcp.TimeoutSecs)

	empty, err := DecodeConfig(TypeUDP, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultUDPConfig(), empty)
}

func TestDecodeConfigMQTTv5UsesMqttConfig(t *testing.T) {
	cfg, err := DecodeConfig(TypeMQTTv5, []byte(`{"clientId":"v5","qos":1}`))
	require.NoError(t, err)

	mqtt, ok := cfg.(MqttConfig)
	require.True(t, ok)
	assert.Equal(t, "v5", mqtt.ClientID)
	assert.Equal(t, 1, mqtt.QoS)
}

func TestDefaultMqttClientIDIsUnique(t *testing.T) {
	a, b := DefaultMqttConfig(), DefaultMqttConfig()
	assert.True(t, strings.HasPrefix(a.ClientID, "remotepad-"))
	assert.NotEqual(t, a.ClientID, b.ClientID)
}

func TestDecodeConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		data    string
		wantErr error
	}{
		{"malformed json", TypeTCP, `{"host":`, ErrDecodeConfig},
		{"unknown field", TypeUDP, `{"hostname":"x"}`, ErrDecodeConfig},
		{"wrong field type", TypeTCP, `{"port":"eighty"}`, ErrDecodeConfig},
		{"port out of range", TypeTCP, `{"port":70000}`, ErrInvalidConfig},
		{"empty host", TypeUDP, `{"host":""}`, ErrInvalidConfig},
		{"zero timeout", TypeWebsocket, `{"timeoutSecs":0}`, ErrInvalidConfig},
		{"http url", TypeWebsocket, `{"url":"http://x"}`, ErrInvalidConfig},
		{"qos 3", TypeMQTTv3, `{"qos":3}`, ErrInvalidConfig},
		{"wildcard topic", TypeMQTTv5, `{"topic":"a/#"}`, ErrInvalidConfig},
		{"credentials without user", TypeMQTTv3, `{"useCredentials":true}`, ErrInvalidConfig},
		{"bad service uuid", TypeBluetooth, `{"serviceUUID":"nope"}`, ErrInvalidConfig},
		{"bad descriptor uuid", TypeBluetoothLE, `{"characteristicDescriptorUUID":"1234"}`, ErrInvalidConfig},
		{"unknown type", Type(42), `{}`, ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeConfig(tt.typ, []byte(tt.data))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWebsocketServerConfigAllowsEphemeralPort(t *testing.T) {
	assert.NoError(t, WebsocketServerConfig{Port: 0}.Validate())
	assert.ErrorIs(t, WebsocketServerConfig{Port: -1}.Validate(), ErrInvalidConfig)
}
