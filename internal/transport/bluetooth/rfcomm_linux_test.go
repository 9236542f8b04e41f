//go:build linux

package bluetooth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBdaddrIsLittleEndian(t *testing.T) {
	addr, err := parseAddress("01:02:03:04:05:06")
	if err != nil {
		t.Fatalf("parseAddress() error = %v", err)
	}
	want := [6]uint8{0x06, 0x05, 0x04, 0x03, 0x02, 0x01}
	if got := bdaddr(addr); got != want {
		t.Errorf("bdaddr() = %v, want %v", got, want)
	}
}

func TestLinuxRFCOMMBondedDevice(t *testing.T) {
	dir := t.TempDir()
	devDir := filepath.Join(dir, "00:1A:7D:DA:71:13", "AA:BB:CC:DD:EE:FF")
	if err := os.MkdirAll(devDir, 0o755); err != nil {
		t.Fatal(err)
	}
	info := "[General]\nName=Pad Receiver\nClass=0x5a020c\n"
	if err := os.WriteFile(filepath.Join(devDir, "info"), []byte(info), 0o600); err != nil {
		t.Fatal(err)
	}

	a := &LinuxRFCOMM{channel: 1, bondDir: dir}

	dev, ok := a.BondedDevice("aa:bb:cc:dd:ee:ff")
	if !ok {
		t.Fatal("BondedDevice() ok = false for paired device")
	}
	if dev.Address != "AA:BB:CC:DD:EE:FF" || dev.Name != "Pad Receiver" {
		t.Errorf("BondedDevice() = %+v", dev)
	}

	if _, ok := a.BondedDevice("11:22:33:44:55:66"); ok {
		t.Error("BondedDevice() ok = true for unpaired device")
	}
	if _, ok := a.BondedDevice("not-an-address"); ok {
		t.Error("BondedDevice() ok = true for malformed address")
	}
}

func TestLinuxRFCOMMTrustsAddressWithoutRecords(t *testing.T) {
	a := &LinuxRFCOMM{channel: 1, bondDir: filepath.Join(t.TempDir(), "missing")}

	dev, ok := a.BondedDevice("AA:BB:CC:DD:EE:FF")
	if !ok || dev.Address != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("BondedDevice() = %+v, %v", dev, ok)
	}
}
