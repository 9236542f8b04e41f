package connection

import "errors"

// Domain errors for the connection package.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnknownType is returned when a transport kind cannot be parsed.
	ErrUnknownType = errors.New("connection: unknown connection type")

	// ErrUnknownState is returned when a state name cannot be parsed.
	ErrUnknownState = errors.New("connection: unknown connection state")

	// ErrInvalidConfig is returned when a configuration value object fails validation.
	ErrInvalidConfig = errors.New("connection: invalid configuration")

	// ErrDecodeConfig is returned when a serialized configuration cannot be decoded.
	ErrDecodeConfig = errors.New("connection: cannot decode configuration")
)
