package mqtt

import "errors"

// Domain-specific errors for MQTT operations.
// They never leave the transport; they are logged and mapped onto states.
var (
	// ErrNotConnected is reported when publishing without a broker connection.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed wraps a failed connect attempt.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed wraps a failed publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed wraps a failed subscribe.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrTimeout is reported when an operation outlives its deadline.
	ErrTimeout = errors.New("mqtt: operation timed out")

	// ErrPayloadTooLarge is reported for payloads above maxPayloadSize.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")
)
