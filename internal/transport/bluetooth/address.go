package bluetooth

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// parseAddress parses "AA:BB:CC:DD:EE:FF" into its six bytes, most
// significant first.
func parseAddress(s string) ([6]byte, error) {
	var addr [6]byte
	parts := strings.Split(s, ":")
	if len(parts) != len(addr) {
		return addr, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	for i, p := range parts {
		if len(p) != 2 {
			return addr, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		b, err := hex.DecodeString(p)
		if err != nil {
			return addr, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		addr[i] = b[0]
	}
	return addr, nil
}

// formatAddress is the inverse of parseAddress.
func formatAddress(addr [6]byte) string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		addr[0], addr[1], addr[2], addr[3], addr[4], addr[5])
}

// NormalizeAddress returns s in canonical upper-case form.
func NormalizeAddress(s string) (string, error) {
	addr, err := parseAddress(s)
	if err != nil {
		return "", err
	}
	return formatAddress(addr), nil
}
