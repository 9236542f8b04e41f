// Package logging provides structured logging for remotepad.
//
// This package wraps Go's standard log/slog package. Its Logger satisfies
// connection.Logger, so every transport logs its state transitions and
// failures through the same handler.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	tcpLog := logger.Transport("TCP")
//	tcpLog.Debug("state changed", "state", "TCP_CONNECTED")
//
// # Security
//
// Never log broker passwords or payloads that may carry credentials.
package logging
