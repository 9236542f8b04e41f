//go:build !linux

package bluetooth

import (
	"context"
	"io"

	"github.com/google/uuid"
)

type unsupportedAdapter struct{}

// NewRFCOMMAdapter returns an adapter whose dials fail with ErrUnsupported.
func NewRFCOMMAdapter(int) ClassicAdapter { return unsupportedAdapter{} }

func (unsupportedAdapter) HasConnectPermission() bool { return true }

func (unsupportedAdapter) BondedDevice(address string) (Device, bool) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return Device{}, false
	}
	return Device{Address: addr}, true
}

func (unsupportedAdapter) DialRFCOMM(context.Context, Device, uuid.UUID) (io.ReadWriteCloser, error) {
	return nil, ErrUnsupported
}
