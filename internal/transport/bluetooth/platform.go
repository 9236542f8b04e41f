package bluetooth

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
)

// Device is a remote Bluetooth device.
type Device struct {
	Address string
	Name    string
}

// ClassicAdapter is the host's Bluetooth Classic radio.
type ClassicAdapter interface {
	// HasConnectPermission reports whether the process may open links.
	HasConnectPermission() bool

	// BondedDevice returns the paired device with the given address.
	BondedDevice(address string) (Device, bool)

	// DialRFCOMM opens an RFCOMM stream to the service on dev. It blocks
	// until the link is up, fails, or ctx ends.
	DialRFCOMM(ctx context.Context, dev Device, service uuid.UUID) (io.ReadWriteCloser, error)
}

// Permission is a runtime permission gating LE peripheral use.
type Permission string

// Permissions checked before opening the GATT server.
const (
	PermissionBluetooth          Permission = "android.permission.BLUETOOTH"
	PermissionBluetoothAdmin     Permission = "android.permission.BLUETOOTH_ADMIN"
	PermissionBluetoothAdvertise Permission = "android.permission.BLUETOOTH_ADVERTISE"
	PermissionBluetoothConnect   Permission = "android.permission.BLUETOOTH_CONNECT"
)

// SDKRuntimePermissions is the first SDK level where advertise and connect
// are separate runtime permissions.
const SDKRuntimePermissions = 31

// Peripheral is the host's BLE peripheral role.
type Peripheral interface {
	// SDKLevel returns the platform API level.
	SDKLevel() int

	// HasPermission reports whether p is granted.
	HasPermission(p Permission) bool

	// OpenGattServer opens a GATT server delivering events to cb.
	OpenGattServer(cb GattServerCallback) (GattServer, error)

	// Advertiser returns the LE advertiser, or nil when the radio has none.
	Advertiser() Advertiser
}

// GattServerCallback receives GATT server events. Calls may arrive on any
// goroutine.
type GattServerCallback interface {
	OnConnectionStateChange(dev Device, status int, connected bool)
	OnCharacteristicWriteRequest(dev Device, ch *Characteristic, value []byte)
	OnDescriptorWriteRequest(dev Device, d *Descriptor, value []byte)
}

// GattServer is an open GATT server.
type GattServer interface {
	AddService(svc *Service) error

	// NotifyCharacteristicChanged sends the characteristic's current value
	// to dev.
	NotifyCharacteristicChanged(dev Device, ch *Characteristic, confirm bool) error

	Close() error
}

// ValueNotifier is implemented by GATT servers that take the notified value
// inline instead of reading it from the characteristic. Platform bindings
// implement it only where the host API supports it.
type ValueNotifier interface {
	NotifyCharacteristicValue(dev Device, ch *Characteristic, confirm bool, value []byte) error
}

// Advertiser starts and stops LE advertising.
type Advertiser interface {
	StartAdvertising(settings AdvertiseSettings, data AdvertiseData, cb AdvertiseCallback)
	StopAdvertising(cb AdvertiseCallback)
}

// AdvertiseCallback reports the outcome of StartAdvertising.
type AdvertiseCallback interface {
	OnStartSuccess(settings AdvertiseSettings)
	OnStartFailure(code int)
}

// Advertising modes.
const (
	AdvertiseModeLowPower = iota
	AdvertiseModeBalanced
	AdvertiseModeLowLatency
)

// Transmit power levels.
const (
	TxPowerUltraLow = iota
	TxPowerLow
	TxPowerMedium
	TxPowerHigh
)

// Advertise failure codes passed to OnStartFailure.
const (
	AdvertiseFailedDataTooLarge       = 1
	AdvertiseFailedTooManyAdvertisers = 2
	AdvertiseFailedAlreadyStarted     = 3
	AdvertiseFailedInternalError      = 4
	AdvertiseFailedFeatureUnsupported = 5
)

// AdvertiseSettings controls how the advertiser broadcasts.
type AdvertiseSettings struct {
	Mode        int
	Connectable bool
	// Timeout in milliseconds; 0 advertises until stopped.
	Timeout      int
	TxPowerLevel int
}

// AdvertiseData is the advertised payload.
type AdvertiseData struct {
	IncludeDeviceName bool
	ServiceUUIDs      []uuid.UUID
}

// GATT status codes.
const (
	GattSuccess = 0
	GattFailure = 257
)

// Characteristic properties.
const (
	PropertyRead        = 0x02
	PropertyWriteNoResp = 0x04
	PropertyWrite       = 0x08
	PropertyNotify      = 0x10
)

// Attribute permissions.
const (
	PermRead  = 0x01
	PermWrite = 0x10
)

// Service is a primary GATT service.
type Service struct {
	UUID            uuid.UUID
	Characteristics []*Characteristic
}

// Characteristic is a GATT characteristic. Value is guarded for the legacy
// set-then-notify path.
type Characteristic struct {
	UUID        uuid.UUID
	Properties  int
	Permissions int
	Descriptors []*Descriptor

	mu    sync.Mutex
	value []byte
}

// SetValue replaces the characteristic's value.
func (c *Characteristic) SetValue(v []byte) {
	c.mu.Lock()
	c.value = append([]byte(nil), v...)
	c.mu.Unlock()
}

// Value returns a copy of the characteristic's value.
func (c *Characteristic) Value() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.value...)
}

// Descriptor is a GATT descriptor.
type Descriptor struct {
	UUID        uuid.UUID
	Permissions int
}
