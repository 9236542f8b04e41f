//go:build linux

package bluetooth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// defaultBondDir is where BlueZ keeps per-adapter pairing records.
const defaultBondDir = "/var/lib/bluetooth"

// connectPollInterval is how often a pending connect checks ctx.
const connectPollInterval = 100 * time.Millisecond

// LinuxRFCOMM dials RFCOMM sockets through the kernel Bluetooth stack.
//
// The service UUID is not resolved through SDP; the configured channel is
// dialed directly.
type LinuxRFCOMM struct {
	channel uint8
	bondDir string
}

var _ ClassicAdapter = (*LinuxRFCOMM)(nil)

// NewRFCOMMAdapter returns the host's Classic adapter dialing channel.
func NewRFCOMMAdapter(channel int) ClassicAdapter {
	return &LinuxRFCOMM{channel: uint8(channel), bondDir: defaultBondDir}
}

// HasConnectPermission reports whether an RFCOMM socket can be created.
// Only EPERM and EACCES count as a denial.
func (a *LinuxRFCOMM) HasConnectPermission() bool {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
	if err != nil {
		return !errors.Is(err, unix.EPERM) && !errors.Is(err, unix.EACCES)
	}
	_ = unix.Close(fd)
	return true
}

// BondedDevice looks address up in the BlueZ pairing records. When the
// records cannot be read the address is trusted as given.
func (a *LinuxRFCOMM) BondedDevice(address string) (Device, bool) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return Device{}, false
	}

	if _, err := os.ReadDir(a.bondDir); err != nil {
		return Device{Address: addr}, true
	}

	matches, err := filepath.Glob(filepath.Join(a.bondDir, "*", addr))
	if err != nil || len(matches) == 0 {
		return Device{}, false
	}
	return Device{Address: addr, Name: readDeviceName(filepath.Join(matches[0], "info"))}, true
}

func readDeviceName(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "Name="); ok {
			return name
		}
	}
	return ""
}

// DialRFCOMM connects to dev on the configured channel.
func (a *LinuxRFCOMM) DialRFCOMM(ctx context.Context, dev Device, _ uuid.UUID) (io.ReadWriteCloser, error) {
	addr, err := parseAddress(dev.Address)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.BTPROTO_RFCOMM)
	if err != nil {
		return nil, fmt.Errorf("rfcomm socket: %w", err)
	}

	sa := &unix.SockaddrRFCOMM{Addr: bdaddr(addr), Channel: a.channel}
	if err := connectNonblock(ctx, fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("rfcomm connect %s channel %d: %w", dev.Address, a.channel, err)
	}

	// A non-blocking descriptor is registered with the runtime poller, so
	// Close unblocks a pending Read.
	return os.NewFile(uintptr(fd), "rfcomm:"+dev.Address), nil
}

func connectNonblock(ctx context.Context, fd int, sa unix.Sockaddr) error {
	err := unix.Connect(fd, sa)
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.EINPROGRESS) && !errors.Is(err, unix.EAGAIN) {
		return err
	}

	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := unix.Poll(fds, int(connectPollInterval/time.Millisecond))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}

		soErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil {
			return err
		}
		if soErr != 0 {
			return unix.Errno(soErr)
		}
		return nil
	}
}

// bdaddr converts a most-significant-first address to the kernel's
// little-endian bdaddr_t layout.
func bdaddr(addr [6]byte) [6]uint8 {
	var out [6]uint8
	for i := range addr {
		out[i] = addr[len(addr)-1-i]
	}
	return out
}
