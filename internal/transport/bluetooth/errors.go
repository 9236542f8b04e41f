package bluetooth

import "errors"

// Domain errors for the bluetooth package.
var (
	// ErrUnsupported is returned by platform calls the host cannot perform.
	ErrUnsupported = errors.New("bluetooth: not supported on this platform")

	// ErrInvalidAddress is returned for malformed device addresses.
	ErrInvalidAddress = errors.New("bluetooth: invalid device address")

	// ErrNotConnected is reported when sending without an open link or central.
	ErrNotConnected = errors.New("bluetooth: not connected")

	// ErrAdvertiseTimeout is reported when the advertiser never answers.
	ErrAdvertiseTimeout = errors.New("bluetooth: advertiser did not report a result")
)
