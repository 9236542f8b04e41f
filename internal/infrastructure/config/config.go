package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/remotepad/internal/connection"
)

// Config is the root configuration structure for the remotepad host.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Connection ConnectionConfig `yaml:"connection"`
	Network    NetworkConfig    `yaml:"network"`
	Bluetooth  BluetoothConfig  `yaml:"bluetooth"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ConnectionConfig selects the transport and carries its parameters.
//
// Params uses the same camelCase keys as the persisted JSON form of the
// transport's configuration value object, e.g.:
//
//	connection:
//	  type: mqtt_v3
//	  params:
//	    brokerIp: "10.0.0.2"
//	    qos: 1
type ConnectionConfig struct {
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:"params"`
}

// NetworkConfig contains local network interface settings.
type NetworkConfig struct {
	// WifiInterfaces lists interface name prefixes treated as Wi-Fi.
	WifiInterfaces []string `yaml:"wifi_interfaces"`
}

// BluetoothConfig contains Bluetooth Classic settings for Linux hosts.
type BluetoothConfig struct {
	// RFCOMMChannel is the channel dialed for the configured service.
	// Default: 1 (the usual Serial Port Profile channel).
	RFCOMMChannel int `yaml:"rfcomm_channel"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: REMOTEPAD_SECTION_KEY
// For example: REMOTEPAD_LOG_LEVEL, REMOTEPAD_CONNECTION_TYPE
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Connection: ConnectionConfig{
			Type: "tcp",
		},
		Network: NetworkConfig{
			WifiInterfaces: []string{"wlan", "wlp", "wl"},
		},
		Bluetooth: BluetoothConfig{
			RFCOMMChannel: 1,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Credentials belong here rather than in the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REMOTEPAD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("REMOTEPAD_CONNECTION_TYPE"); v != "" {
		cfg.Connection.Type = v
	}
	if v := os.Getenv("REMOTEPAD_RFCOMM_CHANNEL"); v != "" {
		if ch, err := strconv.Atoi(v); err == nil {
			cfg.Bluetooth.RFCOMMChannel = ch
		}
	}

	// MQTT credentials
	if v := os.Getenv("REMOTEPAD_MQTT_USERNAME"); v != "" {
		cfg.Connection.setParam("userName", v)
		cfg.Connection.setParam("useCredentials", true)
	}
	if v := os.Getenv("REMOTEPAD_MQTT_PASSWORD"); v != "" {
		cfg.Connection.setParam("password", v)
	}
}

func (c *ConnectionConfig) setParam(key string, value any) {
	if c.Params == nil {
		c.Params = make(map[string]any)
	}
	c.Params[key] = value
}

// Validate checks the configuration for errors.
//
// Transport parameters are validated here too, so a bad profile fails at
// startup rather than at Setup.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, "logging.format must be json or text")
	}

	typ, err := c.Connection.ConnectionType()
	if err != nil {
		errs = append(errs, fmt.Sprintf("connection.type: %v", err))
	} else {
		raw, jsonErr := c.Connection.ParamsJSON()
		if jsonErr != nil {
			errs = append(errs, fmt.Sprintf("connection.params: %v", jsonErr))
		} else if _, decErr := connection.DecodeConfig(typ, raw); decErr != nil {
			errs = append(errs, fmt.Sprintf("connection.params: %v", decErr))
		}
	}

	if c.Bluetooth.RFCOMMChannel < 1 || c.Bluetooth.RFCOMMChannel > 30 {
		errs = append(errs, "bluetooth.rfcomm_channel must be between 1 and 30")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ConnectionType parses the configured transport kind.
func (c ConnectionConfig) ConnectionType() (connection.Type, error) {
	return connection.ParseType(c.Type)
}

// ParamsJSON returns the transport parameters in their persisted JSON form.
// Empty params yield an empty object, i.e. the transport defaults.
func (c ConnectionConfig) ParamsJSON() ([]byte, error) {
	if len(c.Params) == 0 {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(c.Params)
	if err != nil {
		return nil, fmt.Errorf("encoding connection params: %w", err)
	}
	return data, nil
}
