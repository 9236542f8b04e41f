package connection

import (
	"context"
	"log/slog"
)

// Connection is the capability every transport implements.
//
// Lifecycle: construct with a resolved configuration, Setup once, SendData
// zero or more times, TearDown once. An instance must not be reused after
// TearDown. None of the methods return errors or panic; outcomes are
// published on States().
type Connection interface {
	// Type returns the transport kind, fixed at construction.
	Type() Type

	// States returns the connection's state stream. Only the connection
	// publishes to it.
	States() StateSource

	// Setup establishes the underlying channel. It returns once a ready or
	// failure state has been published.
	Setup(ctx context.Context)

	// SendData transmits one opaque UTF-8 payload. Safe for concurrent use.
	SendData(ctx context.Context, payload string)

	// TearDown releases every owned resource and ends in the transport's
	// terminal state, even if Setup never ran or failed.
	TearDown(ctx context.Context)
}

// Receiver is implemented by bidirectional transports (WebSocket client and
// server, MQTT, Bluetooth Classic and LE).
type Receiver interface {
	// Received returns the stream of inbound payloads.
	Received() DataSource
}

// Logger is the logging surface used by transports.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return slog.New(slog.DiscardHandler)
}

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger()
	}
	return l
}
