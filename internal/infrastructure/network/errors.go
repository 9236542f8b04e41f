package network

import "errors"

// Domain errors for the network package.
var (
	// ErrWifiDisabled is returned when no Wi-Fi interface is up.
	ErrWifiDisabled = errors.New("network: wifi disabled")

	// ErrNoAddress is returned when the Wi-Fi interface is up but has no IPv4 address.
	ErrNoAddress = errors.New("network: wifi interface has no IPv4 address")
)
