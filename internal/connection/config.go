package connection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config is implemented by every per-transport configuration value object.
//
// Configurations are plain values: a transport copies the value it is given
// and never mutates it. Derived state (broker URL, listen address) is computed
// during Setup.
type Config interface {
	// ConnectionType returns the transport the configuration belongs to.
	ConnectionType() Type

	// Validate checks field ranges and formats.
	Validate() error
}

// Well-known UUIDs used as construction defaults.
const (
	// SerialPortServiceUUID is the Bluetooth SPP service class UUID.
	SerialPortServiceUUID = "00001101-0000-1000-8000-00805f9b34fb"

	// DefaultLEServiceUUID identifies the remotepad GATT service.
	DefaultLEServiceUUID = "4fafc201-1fb5-459e-8fcc-c5c9c331914b"

	// DefaultLECharacteristicUUID identifies the notify-only input characteristic.
	DefaultLECharacteristicUUID = "beb5483e-36e1-4688-b7f5-ea07361b26a8"

	// ClientConfigDescriptorUUID is the Client Characteristic Configuration Descriptor.
	ClientConfigDescriptorUUID = "00002902-0000-1000-8000-00805f9b34fb"
)

const maxQoS = 2

// TCPConfig holds the parameters of a TCP connection.
type TCPConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	TimeoutSecs int    `json:"timeoutSecs"`
}

// DefaultTCPConfig returns a TCPConfig with construction defaults.
func DefaultTCPConfig() TCPConfig {
	return TCPConfig{Host: "192.168.1.100", Port: 8080, TimeoutSecs: 5}
}

// ConnectionType implements Config.
func (TCPConfig) ConnectionType() Type { return TypeTCP }

// Timeout returns the connect timeout as a duration.
func (c TCPConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSecs) * time.Second }

// Validate implements Config.
func (c TCPConfig) Validate() error {
	if err := validateHost(c.Host); err != nil {
		return err
	}
	if err := validatePort(c.Port); err != nil {
		return err
	}
	return validateTimeout("timeoutSecs", c.TimeoutSecs)
}

// UDPConfig holds the destination of a UDP connection.
type UDPConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// DefaultUDPConfig returns a UDPConfig with construction defaults.
func DefaultUDPConfig() UDPConfig {
	return UDPConfig{Host: "192.168.1.100", Port: 8080}
}

// ConnectionType implements Config.
func (UDPConfig) ConnectionType() Type { return TypeUDP }

// Validate implements Config.
func (c UDPConfig) Validate() error {
	if err := validateHost(c.Host); err != nil {
		return err
	}
	return validatePort(c.Port)
}

// WebsocketConfig holds the parameters of a WebSocket client connection.
type WebsocketConfig struct {
	URL         string `json:"url"`
	TimeoutSecs int    `json:"timeoutSecs"`
}

// DefaultWebsocketConfig returns a WebsocketConfig with construction defaults.
func DefaultWebsocketConfig() WebsocketConfig {
	return WebsocketConfig{URL: "ws://192.168.1.100:8080", TimeoutSecs: 5}
}

// ConnectionType implements Config.
func (WebsocketConfig) ConnectionType() Type { return TypeWebsocket }

// Timeout returns the handshake timeout as a duration.
func (c WebsocketConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Validate implements Config.
func (c WebsocketConfig) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%w: url: %w", ErrInvalidConfig, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: url scheme must be ws or wss, got %q", ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url has no host", ErrInvalidConfig)
	}
	return validateTimeout("timeoutSecs", c.TimeoutSecs)
}

// WebsocketServerConfig holds the parameters of the on-device WebSocket server.
type WebsocketServerConfig struct {
	Port int `json:"port"`
	// UseWifiInterface binds to the Wi-Fi IPv4 address instead of the wildcard address.
	UseWifiInterface bool `json:"useWifiInterface"`
}

// DefaultWebsocketServerConfig returns a WebsocketServerConfig with construction defaults.
func DefaultWebsocketServerConfig() WebsocketServerConfig {
	return WebsocketServerConfig{Port: 8080, UseWifiInterface: true}
}

// ConnectionType implements Config.
func (WebsocketServerConfig) ConnectionType() Type { return TypeWebsocketServer }

// Validate implements Config. Port 0 selects an ephemeral port.
func (c WebsocketServerConfig) Validate() error {
	if c.Port == 0 {
		return nil
	}
	return validatePort(c.Port)
}

// MqttConfig holds the parameters of an MQTT connection (v3 and v5).
type MqttConfig struct {
	BrokerIP              string `json:"brokerIp"`
	BrokerPort            int    `json:"brokerPort"`
	ClientID              string `json:"clientId"`
	Topic                 string `json:"topic"`
	QoS                   int    `json:"qos"`
	UseSSL                bool   `json:"useSSL"`
	UseWebsocket          bool   `json:"useWebsocket"`
	UseCredentials        bool   `json:"useCredentials"`
	UserName              string `json:"userName"`
	Password              string `json:"password"`
	ConnectionTimeoutSecs int    `json:"connectionTimeoutSecs"`
}

// DefaultMqttConfig returns an MqttConfig with construction defaults and a
// freshly generated client ID.
func DefaultMqttConfig() MqttConfig {
	return MqttConfig{
		BrokerIP:              "broker.hivemq.com",
		BrokerPort:            1883,
		ClientID:              "remotepad-" + uuid.NewString(),
		Topic:                 "remotepad/out",
		QoS:                   0,
		ConnectionTimeoutSecs: 10,
	}
}

// ConnectionType implements Config. The v3 and v5 transports share this type;
// the factory selects the protocol version.
func (MqttConfig) ConnectionType() Type { return TypeMQTTv3 }

// ConnectionTimeout returns the connect timeout as a duration.
func (c MqttConfig) ConnectionTimeout() time.Duration {
	return time.Duration(c.ConnectionTimeoutSecs) * time.Second
}

// Validate implements Config.
func (c MqttConfig) Validate() error {
	if err := validateHost(c.BrokerIP); err != nil {
		return err
	}
	if err := validatePort(c.BrokerPort); err != nil {
		return err
	}
	if c.ClientID == "" {
		return fmt.Errorf("%w: clientId is required", ErrInvalidConfig)
	}
	if c.Topic == "" || strings.ContainsAny(c.Topic, "+#") {
		return fmt.Errorf("%w: topic must be a non-empty topic name without wildcards", ErrInvalidConfig)
	}
	if c.QoS < 0 || c.QoS > maxQoS {
		return fmt.Errorf("%w: qos must be 0, 1 or 2, got %d", ErrInvalidConfig, c.QoS)
	}
	if c.UseCredentials && c.UserName == "" {
		return fmt.Errorf("%w: userName is required when useCredentials is set", ErrInvalidConfig)
	}
	return validateTimeout("connectionTimeoutSecs", c.ConnectionTimeoutSecs)
}

// BluetoothConfig holds the parameters of a Bluetooth Classic RFCOMM connection.
type BluetoothConfig struct {
	ServiceUUID string `json:"serviceUUID"`
	// RemoteDevice is the address of an already paired device, e.g. "AA:BB:CC:DD:EE:FF".
	RemoteDevice string `json:"remoteDevice"`
}

// DefaultBluetoothConfig returns a BluetoothConfig with construction defaults.
func DefaultBluetoothConfig() BluetoothConfig {
	return BluetoothConfig{ServiceUUID: SerialPortServiceUUID}
}

// ConnectionType implements Config.
func (BluetoothConfig) ConnectionType() Type { return TypeBluetooth }

// Validate implements Config. An empty RemoteDevice is allowed here; Setup
// reports it as BLUETOOTH_NO_DEVICE.
func (c BluetoothConfig) Validate() error {
	return validateUUID("serviceUUID", c.ServiceUUID)
}

// BluetoothLEConfig holds the GATT layout exposed by the Bluetooth LE transport.
type BluetoothLEConfig struct {
	ServiceUUID                  string `json:"serviceUUID"`
	CharacteristicUUID           string `json:"characteristicUUID"`
	CharacteristicDescriptorUUID string `json:"characteristicDescriptorUUID"`
}

// DefaultBluetoothLEConfig returns a BluetoothLEConfig with construction defaults.
func DefaultBluetoothLEConfig() BluetoothLEConfig {
	return BluetoothLEConfig{
		ServiceUUID:                  DefaultLEServiceUUID,
		CharacteristicUUID:           DefaultLECharacteristicUUID,
		CharacteristicDescriptorUUID: ClientConfigDescriptorUUID,
	}
}

// ConnectionType implements Config.
func (BluetoothLEConfig) ConnectionType() Type { return TypeBluetoothLE }

// Validate implements Config.
func (c BluetoothLEConfig) Validate() error {
	if err := validateUUID("serviceUUID", c.ServiceUUID); err != nil {
		return err
	}
	if err := validateUUID("characteristicUUID", c.CharacteristicUUID); err != nil {
		return err
	}
	return validateUUID("characteristicDescriptorUUID", c.CharacteristicDescriptorUUID)
}

// DefaultConfig returns the default configuration for t.
func DefaultConfig(t Type) (Config, error) {
	switch t {
	case TypeTCP:
		return DefaultTCPConfig(), nil
	case TypeUDP:
		return DefaultUDPConfig(), nil
	case TypeWebsocket:
		return DefaultWebsocketConfig(), nil
	case TypeWebsocketServer:
		return DefaultWebsocketServerConfig(), nil
	case TypeMQTTv3, TypeMQTTv5:
		return DefaultMqttConfig(), nil
	case TypeBluetooth:
		return DefaultBluetoothConfig(), nil
	case TypeBluetoothLE:
		return DefaultBluetoothLEConfig(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
}

// DecodeConfig deserializes the JSON form of the configuration for t.
// Fields missing from data keep their construction defaults; empty data
// yields the defaults. The result is validated.
func DecodeConfig(t Type, data []byte) (Config, error) {
	var (
		cfg Config
		err error
	)
	switch t {
	case TypeTCP:
		cfg, err = decodeInto(data, DefaultTCPConfig())
	case TypeUDP:
		cfg, err = decodeInto(data, DefaultUDPConfig())
	case TypeWebsocket:
		cfg, err = decodeInto(data, DefaultWebsocketConfig())
	case TypeWebsocketServer:
		cfg, err = decodeInto(data, DefaultWebsocketServerConfig())
	case TypeMQTTv3, TypeMQTTv5:
		cfg, err = decodeInto(data, DefaultMqttConfig())
	case TypeBluetooth:
		cfg, err = decodeInto(data, DefaultBluetoothConfig())
	case TypeBluetoothLE:
		cfg, err = decodeInto(data, DefaultBluetoothLEConfig())
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EncodeConfig serializes cfg to its JSON form.
func EncodeConfig(cfg Config) ([]byte, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding %s config: %w", cfg.ConnectionType(), err)
	}
	return data, nil
}

func decodeInto[C Config](data []byte, cfg C) (Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeConfig, cfg.ConnectionType(), err)
	}
	return cfg, nil
}

func validateHost(host string) error {
	if strings.TrimSpace(host) == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	return nil
}

func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidConfig, port)
	}
	return nil
}

func validateTimeout(field string, secs int) error {
	if secs < 1 {
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, field, secs)
	}
	return nil
}

func validateUUID(field, value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, field, err)
	}
	return nil
}
