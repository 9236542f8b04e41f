package bluetoothtest

import (
	"sync"

	"github.com/nerrad567/remotepad/internal/transport/bluetooth"
)

// Peripheral simulates the LE peripheral role.
//
// Configure the exported fields before the peripheral is used.
type Peripheral struct {
	SDK int

	// NoAdvertiser makes Advertiser return nil.
	NoAdvertiser bool
	// OpenErr fails OpenGattServer.
	OpenErr error
	// AddServiceErr fails AddService.
	AddServiceErr error
	// NotifyErr fails every notification.
	NotifyErr error
	// LegacyNotify hides the inline-value notify method.
	LegacyNotify bool
	// AdvertiseFailure, when non-zero, fails advertising with that code.
	AdvertiseFailure int
	// SilentAdvertiser never reports an advertise outcome.
	SilentAdvertiser bool

	mu      sync.Mutex
	granted map[bluetooth.Permission]bool
	server  *GattServer
	adv     *Advertiser
}

var _ bluetooth.Peripheral = (*Peripheral)(nil)

// NewPeripheral returns a peripheral at sdk with granted permissions.
func NewPeripheral(sdk int, granted ...bluetooth.Permission) *Peripheral {
	p := &Peripheral{
		SDK:     sdk,
		granted: make(map[bluetooth.Permission]bool),
	}
	for _, g := range granted {
		p.granted[g] = true
	}
	p.adv = &Advertiser{p: p}
	return p
}

// SDKLevel implements bluetooth.Peripheral.
func (p *Peripheral) SDKLevel() int { return p.SDK }

// HasPermission implements bluetooth.Peripheral.
func (p *Peripheral) HasPermission(perm bluetooth.Permission) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.granted[perm]
}

// OpenGattServer implements bluetooth.Peripheral.
func (p *Peripheral) OpenGattServer(cb bluetooth.GattServerCallback) (bluetooth.GattServer, error) {
	if p.OpenErr != nil {
		return nil, p.OpenErr
	}
	s := &GattServer{p: p, cb: cb}

	p.mu.Lock()
	p.server = s
	p.mu.Unlock()

	if p.LegacyNotify {
		return legacyServer{s}, nil
	}
	return s, nil
}

// Advertiser implements bluetooth.Peripheral.
func (p *Peripheral) Advertiser() bluetooth.Advertiser {
	if p.NoAdvertiser {
		return nil
	}
	return p.adv
}

// Server returns the last opened GATT server, or nil.
func (p *Peripheral) Server() *GattServer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.server
}

// Advertising reports whether the advertiser is running.
func (p *Peripheral) Advertising() bool {
	p.adv.mu.Lock()
	defer p.adv.mu.Unlock()
	return p.adv.running
}

// AdvertiseStops returns the number of StopAdvertising calls.
func (p *Peripheral) AdvertiseStops() int {
	p.adv.mu.Lock()
	defer p.adv.mu.Unlock()
	return p.adv.stops
}

// AdvertisedData returns the last advertised payload.
func (p *Peripheral) AdvertisedData() bluetooth.AdvertiseData {
	return p.adv.Data()
}

// ConnectCentral simulates dev connecting to the GATT server.
func (p *Peripheral) ConnectCentral(dev bluetooth.Device) {
	p.Server().cb.OnConnectionStateChange(dev, bluetooth.GattSuccess, true)
}

// DisconnectCentral simulates dev dropping its link.
func (p *Peripheral) DisconnectCentral(dev bluetooth.Device) {
	p.Server().cb.OnConnectionStateChange(dev, bluetooth.GattSuccess, false)
}

// Write simulates dev writing value to the first characteristic of the
// first service.
func (p *Peripheral) Write(dev bluetooth.Device, value []byte) {
	s := p.Server()
	s.mu.Lock()
	var ch *bluetooth.Characteristic
	if len(s.services) > 0 && len(s.services[0].Characteristics) > 0 {
		ch = s.services[0].Characteristics[0]
	}
	s.mu.Unlock()
	s.cb.OnCharacteristicWriteRequest(dev, ch, value)
}

// Notification is one notify call observed by a GattServer.
type Notification struct {
	Device bluetooth.Device
	Value  []byte
	Inline bool
}

// GattServer records services and notifications.
type GattServer struct {
	p  *Peripheral
	cb bluetooth.GattServerCallback

	mu            sync.Mutex
	services      []*bluetooth.Service
	notifications []Notification
	closed        bool
}

var (
	_ bluetooth.GattServer    = (*GattServer)(nil)
	_ bluetooth.ValueNotifier = (*GattServer)(nil)
)

// AddService implements bluetooth.GattServer.
func (s *GattServer) AddService(svc *bluetooth.Service) error {
	if s.p.AddServiceErr != nil {
		return s.p.AddServiceErr
	}
	s.mu.Lock()
	s.services = append(s.services, svc)
	s.mu.Unlock()
	return nil
}

// NotifyCharacteristicChanged implements bluetooth.GattServer.
func (s *GattServer) NotifyCharacteristicChanged(dev bluetooth.Device, ch *bluetooth.Characteristic, _ bool) error {
	return s.record(Notification{Device: dev, Value: ch.Value()})
}

// NotifyCharacteristicValue implements bluetooth.ValueNotifier.
func (s *GattServer) NotifyCharacteristicValue(dev bluetooth.Device, _ *bluetooth.Characteristic, _ bool, value []byte) error {
	return s.record(Notification{Device: dev, Value: append([]byte(nil), value...), Inline: true})
}

func (s *GattServer) record(n Notification) error {
	if s.p.NotifyErr != nil {
		return s.p.NotifyErr
	}
	s.mu.Lock()
	s.notifications = append(s.notifications, n)
	s.mu.Unlock()
	return nil
}

// Close implements bluetooth.GattServer.
func (s *GattServer) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Services returns the registered services.
func (s *GattServer) Services() []*bluetooth.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*bluetooth.Service(nil), s.services...)
}

// Notifications returns the recorded notifications.
func (s *GattServer) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.notifications...)
}

// Closed reports whether Close was called.
func (s *GattServer) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// legacyServer exposes only the set-then-notify path.
type legacyServer struct{ s *GattServer }

func (l legacyServer) AddService(svc *bluetooth.Service) error { return l.s.AddService(svc) }

func (l legacyServer) NotifyCharacteristicChanged(dev bluetooth.Device, ch *bluetooth.Characteristic, confirm bool) error {
	return l.s.NotifyCharacteristicChanged(dev, ch, confirm)
}

func (l legacyServer) Close() error { return l.s.Close() }

// Advertiser simulates the LE advertiser. Outcomes are reported on a
// separate goroutine.
type Advertiser struct {
	p *Peripheral

	mu      sync.Mutex
	running bool
	stops   int
	data    bluetooth.AdvertiseData
}

// StartAdvertising implements bluetooth.Advertiser.
func (a *Advertiser) StartAdvertising(settings bluetooth.AdvertiseSettings, data bluetooth.AdvertiseData, cb bluetooth.AdvertiseCallback) {
	if code := a.p.AdvertiseFailure; code != 0 {
		go cb.OnStartFailure(code)
		return
	}

	a.mu.Lock()
	a.running = true
	a.data = data
	a.mu.Unlock()

	if !a.p.SilentAdvertiser {
		go cb.OnStartSuccess(settings)
	}
}

// StopAdvertising implements bluetooth.Advertiser.
func (a *Advertiser) StopAdvertising(bluetooth.AdvertiseCallback) {
	a.mu.Lock()
	a.running = false
	a.stops++
	a.mu.Unlock()
}

// Data returns the last advertised payload.
func (a *Advertiser) Data() bluetooth.AdvertiseData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.data
}
