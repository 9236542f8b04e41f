// Package bluetoothtest provides in-memory Bluetooth platforms for tests.
package bluetoothtest

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/nerrad567/remotepad/internal/transport/bluetooth"
)

// Classic simulates a Classic adapter. Each successful dial returns one end
// of a net.Pipe and delivers the other end on Peers.
//
// Configure the exported fields before the adapter is used.
type Classic struct {
	// Denied makes HasConnectPermission report false.
	Denied bool
	// DialErr fails every dial.
	DialErr error
	// Block makes dials wait for ctx to end.
	Block bool
	// Peers receives the remote end of each link.
	Peers chan net.Conn

	mu      sync.Mutex
	devices map[string]bluetooth.Device
	dials   int
	service uuid.UUID
}

var _ bluetooth.ClassicAdapter = (*Classic)(nil)

// NewClassic returns an adapter paired with devices.
func NewClassic(devices ...bluetooth.Device) *Classic {
	a := &Classic{
		Peers:   make(chan net.Conn, 1),
		devices: make(map[string]bluetooth.Device),
	}
	for _, d := range devices {
		a.devices[d.Address] = d
	}
	return a
}

// HasConnectPermission implements bluetooth.ClassicAdapter.
func (a *Classic) HasConnectPermission() bool { return !a.Denied }

// BondedDevice implements bluetooth.ClassicAdapter.
func (a *Classic) BondedDevice(address string) (bluetooth.Device, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.devices[address]
	return d, ok
}

// DialRFCOMM implements bluetooth.ClassicAdapter.
func (a *Classic) DialRFCOMM(ctx context.Context, _ bluetooth.Device, service uuid.UUID) (io.ReadWriteCloser, error) {
	a.mu.Lock()
	a.dials++
	a.service = service
	a.mu.Unlock()

	if a.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if a.DialErr != nil {
		return nil, a.DialErr
	}

	local, remote := net.Pipe()
	a.Peers <- remote
	return local, nil
}

// Dials returns the number of DialRFCOMM calls.
func (a *Classic) Dials() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dials
}

// Service returns the service UUID of the last dial.
func (a *Classic) Service() uuid.UUID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.service
}
