// Package config handles loading and validating remotepad host configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of the selected connection profile
//   - Default value handling
//
// Security Considerations:
//   - MQTT credentials should be set via REMOTEPAD_MQTT_USERNAME and
//     REMOTEPAD_MQTT_PASSWORD rather than written into the config file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/remotepad.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	typ, _ := cfg.Connection.ConnectionType()
//	raw, _ := cfg.Connection.ParamsJSON()
package config
