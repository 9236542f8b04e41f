package bluetooth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/remotepad/internal/connection"
)

// defaultAdvertiseTimeout bounds the wait for the advertiser's start callback.
const defaultAdvertiseTimeout = 10 * time.Second

// LE is the Bluetooth LE transport: a GATT server exposing one notify-only
// characteristic, advertised until a central connects.
//
// Thread Safety:
//   - SendData is safe for concurrent use; notifications are serialised.
//   - GATT callbacks may arrive on any goroutine.
type LE struct {
	cfg              connection.BluetoothLEConfig
	peripheral       Peripheral
	logger           connection.Logger
	state            *connection.Stream[connection.State]
	data             *connection.Stream[string]
	advertiseTimeout time.Duration

	mu             sync.Mutex
	server         GattServer
	characteristic *Characteristic
	advertiser     Advertiser
	advertiseCB    *advertiseResult
	central        *Device
	closed         bool

	notifyMu sync.Mutex
}

var (
	_ connection.Connection = (*LE)(nil)
	_ connection.Receiver   = (*LE)(nil)
)

// NewLE creates a Bluetooth LE connection for cfg. A nil peripheral makes
// Setup report BLUETOOTH_LE_UNSUPPORTED. A nil logger discards output.
func NewLE(cfg connection.BluetoothLEConfig, peripheral Peripheral, logger connection.Logger) *LE {
	return &LE{
		cfg:              cfg,
		peripheral:       peripheral,
		logger:           connection.OrNop(logger),
		state:            connection.NewStateStream(),
		data:             connection.NewDataStream(),
		advertiseTimeout: defaultAdvertiseTimeout,
	}
}

// Type implements connection.Connection.
func (c *LE) Type() connection.Type { return connection.TypeBluetoothLE }

// States implements connection.Connection.
func (c *LE) States() connection.StateSource { return c.state }

// Received implements connection.Receiver. It carries write requests on the
// characteristic.
func (c *LE) Received() connection.DataSource { return c.data }

// Setup opens the GATT server and starts advertising its service.
func (c *LE) Setup(ctx context.Context) {
	if c.peripheral == nil {
		c.logger.Warn("bluetooth le peripheral role unsupported")
		c.publish(connection.StateBluetoothLEUnsupported)
		return
	}
	if !c.hasPermissions() {
		c.logger.Warn("bluetooth le permissions not granted", "sdk", c.peripheral.SDKLevel())
		c.publish(connection.StateBluetoothLEPermissionDenied)
		return
	}

	adv := c.peripheral.Advertiser()
	if adv == nil {
		c.logger.Warn("bluetooth le advertiser unavailable")
		c.publish(connection.StateBluetoothLEAdvertiserUnavailable)
		return
	}

	svc, ch, err := buildService(c.cfg)
	if err != nil {
		c.logger.Warn("invalid gatt layout", "error", err)
		c.publish(connection.StateBluetoothLEGattServerFailed)
		return
	}

	server, err := c.peripheral.OpenGattServer(gattCallback{c})
	if err != nil {
		c.logger.Warn("gatt server open failed", "error", err)
		c.publish(connection.StateBluetoothLEGattServerFailed)
		return
	}
	if err := server.AddService(svc); err != nil {
		c.logger.Warn("gatt add service failed", "service", svc.UUID, "error", err)
		_ = server.Close()
		c.publish(connection.StateBluetoothLEGattServerFailed)
		return
	}

	cb := newAdvertiseResult()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = server.Close()
		return
	}
	c.server = server
	c.characteristic = ch
	c.advertiser = adv
	c.advertiseCB = cb
	c.mu.Unlock()

	adv.StartAdvertising(advertiseSettings(), AdvertiseData{ServiceUUIDs: []uuid.UUID{svc.UUID}}, cb)

	err = cb.wait(ctx, c.advertiseTimeout)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if err != nil {
		c.logger.Warn("bluetooth le advertise failed", "error", err)
		// A late start must not leave the radio advertising.
		c.stopAdvertisingLocked()
		c.publish(connection.StateBluetoothLEAdvertiseFailed)
		return
	}

	// A central that connected first has already stopped advertising.
	if c.central != nil {
		return
	}
	c.logger.Info("bluetooth le advertising", "service", svc.UUID)
	c.publish(connection.StateBluetoothLEAdvertising)
}

func (c *LE) hasPermissions() bool {
	p := c.peripheral
	if p.SDKLevel() >= SDKRuntimePermissions {
		return p.HasPermission(PermissionBluetoothAdvertise) && p.HasPermission(PermissionBluetoothConnect)
	}
	return p.HasPermission(PermissionBluetooth) && p.HasPermission(PermissionBluetoothAdmin)
}

func buildService(cfg connection.BluetoothLEConfig) (*Service, *Characteristic, error) {
	svcID, err := uuid.Parse(cfg.ServiceUUID)
	if err != nil {
		return nil, nil, fmt.Errorf("service uuid: %w", err)
	}
	chID, err := uuid.Parse(cfg.CharacteristicUUID)
	if err != nil {
		return nil, nil, fmt.Errorf("characteristic uuid: %w", err)
	}
	descID, err := uuid.Parse(cfg.CharacteristicDescriptorUUID)
	if err != nil {
		return nil, nil, fmt.Errorf("descriptor uuid: %w", err)
	}

	ch := &Characteristic{
		UUID:        chID,
		Properties:  PropertyNotify,
		Permissions: PermRead,
		Descriptors: []*Descriptor{{UUID: descID, Permissions: PermRead | PermWrite}},
	}
	return &Service{UUID: svcID, Characteristics: []*Characteristic{ch}}, ch, nil
}

func advertiseSettings() AdvertiseSettings {
	return AdvertiseSettings{
		Mode:         AdvertiseModeLowLatency,
		Connectable:  true,
		TxPowerLevel: TxPowerHigh,
	}
}

// stopAdvertisingLocked must be called with c.mu held.
func (c *LE) stopAdvertisingLocked() {
	if c.advertiser == nil {
		return
	}
	c.advertiser.StopAdvertising(c.advertiseCB)
}

func (c *LE) onConnectionStateChange(dev Device, status int, connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if connected {
		if c.central != nil && c.central.Address != dev.Address {
			c.logger.Warn("ignoring second central", "device", dev.Address, "connected", c.central.Address)
			return
		}
		c.central = &dev
		c.stopAdvertisingLocked()
		c.logger.Info("central connected", "device", dev.Address, "status", status)
		c.publish(connection.StateBluetoothLEClientConnected)
		return
	}

	if c.central == nil || c.central.Address != dev.Address {
		return
	}
	c.central = nil
	c.stopAdvertisingLocked()
	c.logger.Info("central disconnected", "device", dev.Address, "status", status)
	c.publish(connection.StateBluetoothLEClientDisconnected)
}

func (c *LE) onCharacteristicWrite(dev Device, ch *Characteristic, value []byte) {
	c.mu.Lock()
	own := c.characteristic
	c.mu.Unlock()

	if own == nil || ch == nil || ch.UUID != own.UUID {
		c.logger.Debug("write to unknown characteristic", "device", dev.Address)
		return
	}
	c.data.Publish(string(value))
}

func (c *LE) onDescriptorWrite(dev Device, d *Descriptor, value []byte) {
	if d == nil {
		return
	}
	c.logger.Debug("descriptor written", "device", dev.Address, "descriptor", d.UUID, "value", value)
}

// SendData notifies the connected central with payload.
func (c *LE) SendData(_ context.Context, payload string) {
	c.mu.Lock()
	server, ch, central := c.server, c.characteristic, c.central
	c.mu.Unlock()

	if server == nil || central == nil {
		c.logger.Warn("bluetooth le notify failed", "error", ErrNotConnected)
		c.publish(connection.StateBluetoothLENotifyFailed)
		return
	}

	c.notifyMu.Lock()
	err := notify(server, *central, ch, []byte(payload))
	c.notifyMu.Unlock()

	if err != nil {
		c.logger.Warn("bluetooth le notify failed", "device", central.Address, "error", err)
		c.publish(connection.StateBluetoothLENotifyFailed)
	}
}

func notify(server GattServer, dev Device, ch *Characteristic, value []byte) error {
	if vn, ok := server.(ValueNotifier); ok {
		return vn.NotifyCharacteristicValue(dev, ch, false, value)
	}
	ch.SetValue(value)
	return server.NotifyCharacteristicChanged(dev, ch, false)
}

// TearDown stops advertising, closes the GATT server and publishes
// BLUETOOTH_LE_DISCONNECTED.
func (c *LE) TearDown(_ context.Context) {
	c.mu.Lock()
	c.closed = true
	c.stopAdvertisingLocked()
	server := c.server
	c.server = nil
	c.central = nil
	c.mu.Unlock()

	if server != nil {
		if err := server.Close(); err != nil {
			c.logger.Debug("gatt server close failed", "error", err)
		}
	}

	c.publish(connection.StateBluetoothLEDisconnected)
}

func (c *LE) publish(s connection.State) {
	c.logger.Debug("state changed", "state", s)
	c.state.Publish(s)
}

// gattCallback routes GATT server events to the connection.
type gattCallback struct{ c *LE }

func (g gattCallback) OnConnectionStateChange(dev Device, status int, connected bool) {
	g.c.onConnectionStateChange(dev, status, connected)
}

func (g gattCallback) OnCharacteristicWriteRequest(dev Device, ch *Characteristic, value []byte) {
	g.c.onCharacteristicWrite(dev, ch, value)
}

func (g gattCallback) OnDescriptorWriteRequest(dev Device, d *Descriptor, value []byte) {
	g.c.onDescriptorWrite(dev, d, value)
}

// advertiseResult captures the first outcome reported by the advertiser.
type advertiseResult struct {
	once sync.Once
	done chan error
}

func newAdvertiseResult() *advertiseResult {
	return &advertiseResult{done: make(chan error, 1)}
}

func (r *advertiseResult) OnStartSuccess(AdvertiseSettings) {
	r.once.Do(func() { r.done <- nil })
}

func (r *advertiseResult) OnStartFailure(code int) {
	r.once.Do(func() { r.done <- fmt.Errorf("advertise start failed: %s", advertiseFailure(code)) })
}

func (r *advertiseResult) wait(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-r.done:
		return err
	case <-timer.C:
		return ErrAdvertiseTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func advertiseFailure(code int) string {
	switch code {
	case AdvertiseFailedDataTooLarge:
		return "data too large"
	case AdvertiseFailedTooManyAdvertisers:
		return "too many advertisers"
	case AdvertiseFailedAlreadyStarted:
		return "already started"
	case AdvertiseFailedInternalError:
		return "internal error"
	case AdvertiseFailedFeatureUnsupported:
		return "feature unsupported"
	default:
		return fmt.Sprintf("code %d", code)
	}
}
