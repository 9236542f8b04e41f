package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/nerrad567/remotepad/internal/connection"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: "debug"
  format: "text"
connection:
  type: "mqtt_v3"
  params:
    brokerIp: "10.0.0.2"
    brokerPort: 8883
    clientId: "pad-01"
    topic: "home/pad"
    qos: 1
    useSSL: true
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}

	typ, err := cfg.Connection.ConnectionType()
	if err != nil {
		t.Fatalf("ConnectionType() error = %v", err)
	}
	if typ != connection.TypeMQTTv3 {
		t.Errorf("ConnectionType() = %v, want %v", typ, connection.TypeMQTTv3)
	}

	raw, err := cfg.Connection.ParamsJSON()
	if err != nil {
		t.Fatalf("ParamsJSON() error = %v", err)
	}
	decoded, err := connection.DecodeConfig(typ, raw)
	if err != nil {
		t.Fatalf("DecodeConfig() error = %v", err)
	}
	mqttCfg := decoded.(connection.MqttConfig)
	if mqttCfg.BrokerIP != "10.0.0.2" || mqttCfg.BrokerPort != 8883 || mqttCfg.QoS != 1 || !mqttCfg.UseSSL {
		t.Errorf("decoded MqttConfig = %+v", mqttCfg)
	}

	if cfg.Bluetooth.RFCOMMChannel != 1 {
		t.Errorf("Bluetooth.RFCOMMChannel = %d, want 1", cfg.Bluetooth.RFCOMMChannel)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
connection:
  type: "tcp"
  params:
    port: 70000
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for out-of-range port, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "unknown connection type",
			mutate: func(c *Config) {
				c.Connection.Type = "smoke-signals"
			},
			wantErr: true,
		},
		{
			name: "bad logging format",
			mutate: func(c *Config) {
				c.Logging.Format = "xml"
			},
			wantErr: true,
		},
		{
			name: "unknown param",
			mutate: func(c *Config) {
				c.Connection.Params = map[string]any{"hostname": "x"}
			},
			wantErr: true,
		},
		{
			name: "invalid qos",
			mutate: func(c *Config) {
				c.Connection.Type = "mqtt_v5"
				c.Connection.Params = map[string]any{"qos": 3}
			},
			wantErr: true,
		},
		{
			name: "rfcomm channel out of range",
			mutate: func(c *Config) {
				c.Bluetooth.RFCOMMChannel = 31
			},
			wantErr: true,
		},
		{
			name: "bluetooth le defaults",
			mutate: func(c *Config) {
				c.Connection.Type = "bluetooth_le"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("REMOTEPAD_LOG_LEVEL", "warn")
	t.Setenv("REMOTEPAD_CONNECTION_TYPE", "mqtt_v3")
	t.Setenv("REMOTEPAD_RFCOMM_CHANNEL", "3")
	t.Setenv("REMOTEPAD_MQTT_USERNAME", "testuser")
	t.Setenv("REMOTEPAD_MQTT_PASSWORD", "testpass")

	applyEnvOverrides(cfg)

	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "warn")
	}

	if cfg.Connection.Type != "mqtt_v3" {
		t.Errorf("Connection.Type = %q, want %q", cfg.Connection.Type, "mqtt_v3")
	}

	if cfg.Bluetooth.RFCOMMChannel != 3 {
		t.Errorf("Bluetooth.RFCOMMChannel = %d, want 3", cfg.Bluetooth.RFCOMMChannel)
	}

	raw, err := cfg.Connection.ParamsJSON()
	if err != nil {
		t.Fatalf("ParamsJSON() error = %v", err)
	}
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		t.Fatalf("unmarshal params: %v", err)
	}

	if params["userName"] != "testuser" {
		t.Errorf("params[userName] = %v, want %q", params["userName"], "testuser")
	}
	if params["password"] != "testpass" {
		t.Errorf("params[password] = %v, want %q", params["password"], "testpass")
	}
	if params["useCredentials"] != true {
		t.Errorf("params[useCredentials] = %v, want true", params["useCredentials"])
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after overrides error = %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Logging.Format != "json" {
		t.Errorf("defaultConfig Logging.Format = %q, want json", cfg.Logging.Format)
	}

	if cfg.Connection.Type != "tcp" {
		t.Errorf("defaultConfig Connection.Type = %q, want tcp", cfg.Connection.Type)
	}

	if len(cfg.Network.WifiInterfaces) == 0 {
		t.Error("defaultConfig should list Wi-Fi interface prefixes")
	}

	raw, err := cfg.Connection.ParamsJSON()
	if err != nil {
		t.Fatalf("ParamsJSON() error = %v", err)
	}
	if string(raw) != "{}" {
		t.Errorf("ParamsJSON() = %s, want {}", raw)
	}
}
