package connection

import (
	"fmt"
	"strings"
)

// State is one observable lifecycle or error event of a Connection.
//
// States are partitioned by transport prefix (TCP_*, UDP_*, WEBSOCKET_*,
// WEBSOCKET_SERVER_*, MQTT_*, BLUETOOTH_*, BLUETOOTH_LE_*). No transport
// publishes another transport's states. StateNone is the universal initial value.
type State int

// Connection states.
const (
	StateNone State = iota

	StateTCPConnecting
	StateTCPConnected
	StateTCPConnectionFailed
	StateTCPConnectionTimeout
	StateTCPError
	StateTCPDisconnecting
	StateTCPDisconnected

	StateUDPSocketOpen
	StateUDPSocketFailed
	StateUDPError
	StateUDPDisconnected

	StateWebsocketConnecting
	StateWebsocketConnected
	StateWebsocketConnectionTimeout
	StateWebsocketError
	StateWebsocketSendFailed
	StateWebsocketDisconnecting
	StateWebsocketDisconnected

	StateWebsocketServerStarting
	StateWebsocketServerStarted
	StateWebsocketServerWifiDisabled
	StateWebsocketServerAddressInUse
	StateWebsocketServerError
	StateWebsocketServerSendFailed
	StateWebsocketServerClientConnected
	StateWebsocketServerClientDisconnected
	StateWebsocketServerStopping
	StateWebsocketServerStopped

	StateMQTTConnecting
	StateMQTTConnected
	StateMQTTConnectionTimeout
	StateMQTTAuthFailed
	StateMQTTError
	StateMQTTPublishFailed
	StateMQTTConnectionLost
	StateMQTTDisconnecting
	StateMQTTDisconnected

	StateBluetoothPermissionDenied
	StateBluetoothNoDevice
	StateBluetoothConnecting
	StateBluetoothConnected
	StateBluetoothConnectionFailed
	StateBluetoothError
	StateBluetoothDisconnected

	StateBluetoothLEPermissionDenied
	StateBluetoothLEUnsupported
	StateBluetoothLEAdvertiserUnavailable
	StateBluetoothLEGattServerFailed
	StateBluetoothLEAdvertising
	StateBluetoothLEAdvertiseFailed
	StateBluetoothLEClientConnected
	StateBluetoothLEClientDisconnected
	StateBluetoothLENotifyFailed
	StateBluetoothLEDisconnected

	stateCount
)

// StateKind groups states by what they mean to a caller's lifecycle bookkeeping.
type StateKind int

const (
	// KindInitial is only used by StateNone.
	KindInitial StateKind = iota
	// KindProgress marks an in-flight transition (connecting, disconnecting).
	KindProgress
	// KindReady marks a usable channel (connected, socket open, advertising).
	KindReady
	// KindFailure marks a failed setup: precondition, timeout or protocol failure.
	KindFailure
	// KindError marks a send-time or per-event error; the connection stays live.
	KindError
	// KindTerminal marks the end of a connection (disconnected, stopped, lost).
	KindTerminal
)

func (k StateKind) String() string {
	switch k {
	case KindInitial:
		return "initial"
	case KindProgress:
		return "progress"
	case KindReady:
		return "ready"
	case KindFailure:
		return "failure"
	case KindError:
		return "error"
	case KindTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("StateKind(%d)", int(k))
	}
}

type stateInfo struct {
	name      string
	transport Type
	kind      StateKind
}

var stateTable = [stateCount]stateInfo{
	StateNone: {"NONE", 0, KindInitial},

	StateTCPConnecting:        {"TCP_CONNECTING", TypeTCP, KindProgress},
	StateTCPConnected:         {"TCP_CONNECTED", TypeTCP, KindReady},
	StateTCPConnectionFailed:  {"TCP_CONNECTION_FAILED", TypeTCP, KindFailure},
	StateTCPConnectionTimeout: {"TCP_CONNECTION_TIMEOUT", TypeTCP, KindFailure},
	StateTCPError:             {"TCP_ERROR", TypeTCP, KindError},
	StateTCPDisconnecting:     {"TCP_DISCONNECTING", TypeTCP, KindProgress},
	StateTCPDisconnected:      {"TCP_DISCONNECTED", TypeTCP, KindTerminal},

	StateUDPSocketOpen:   {"UDP_SOCKET_OPEN", TypeUDP, KindReady},
	StateUDPSocketFailed: {"UDP_SOCKET_FAILED", TypeUDP, KindFailure},
	StateUDPError:        {"UDP_ERROR", TypeUDP, KindError},
	StateUDPDisconnected: {"UDP_DISCONNECTED", TypeUDP, KindTerminal},

	StateWebsocketConnecting:        {"WEBSOCKET_CONNECTING", TypeWebsocket, KindProgress},
	StateWebsocketConnected:         {"WEBSOCKET_CONNECTED", TypeWebsocket, KindReady},
	StateWebsocketConnectionTimeout: {"WEBSOCKET_CONNECTION_TIMEOUT", TypeWebsocket, KindFailure},
	StateWebsocketError:             {"WEBSOCKET_ERROR", TypeWebsocket, KindFailure},
	StateWebsocketSendFailed:        {"WEBSOCKET_SEND_FAILED", TypeWebsocket, KindError},
	StateWebsocketDisconnecting:     {"WEBSOCKET_DISCONNECTING", TypeWebsocket, KindProgress},
	StateWebsocketDisconnected:      {"WEBSOCKET_DISCONNECTED", TypeWebsocket, KindTerminal},

	StateWebsocketServerStarting:           {"WEBSOCKET_SERVER_STARTING", TypeWebsocketServer, KindProgress},
	StateWebsocketServerStarted:            {"WEBSOCKET_SERVER_STARTED", TypeWebsocketServer, KindReady},
	StateWebsocketServerWifiDisabled:       {"WEBSOCKET_SERVER_WIFI_DISABLED", TypeWebsocketServer, KindFailure},
	StateWebsocketServerAddressInUse:       {"WEBSOCKET_SERVER_ADDRESS_IN_USE", TypeWebsocketServer, KindFailure},
	StateWebsocketServerError:              {"WEBSOCKET_SERVER_ERROR", TypeWebsocketServer, KindFailure},
	StateWebsocketServerSendFailed:         {"WEBSOCKET_SERVER_SEND_FAILED", TypeWebsocketServer, KindError},
	StateWebsocketServerClientConnected:    {"WEBSOCKET_SERVER_CLIENT_CONNECTED", TypeWebsocketServer, KindReady},
	StateWebsocketServerClientDisconnected: {"WEBSOCKET_SERVER_CLIENT_DISCONNECTED", TypeWebsocketServer, KindReady},
	StateWebsocketServerStopping:           {"WEBSOCKET_SERVER_STOPPING", TypeWebsocketServer, KindProgress},
	StateWebsocketServerStopped:            {"WEBSOCKET_SERVER_STOPPED", TypeWebsocketServer, KindTerminal},

	StateMQTTConnecting:        {"MQTT_CONNECTING", TypeMQTTv3, KindProgress},
	StateMQTTConnected:         {"MQTT_CONNECTED", TypeMQTTv3, KindReady},
	StateMQTTConnectionTimeout: {"MQTT_CONNECTION_TIMEOUT", TypeMQTTv3, KindFailure},
	StateMQTTAuthFailed:        {"MQTT_AUTH_FAILED", TypeMQTTv3, KindFailure},
	StateMQTTError:             {"MQTT_ERROR", TypeMQTTv3, KindFailure},
	StateMQTTPublishFailed:     {"MQTT_PUBLISH_FAILED", TypeMQTTv3, KindError},
	StateMQTTConnectionLost:    {"MQTT_CONNECTION_LOST", TypeMQTTv3, KindTerminal},
	StateMQTTDisconnecting:     {"MQTT_DISCONNECTING", TypeMQTTv3, KindProgress},
	StateMQTTDisconnected:      {"MQTT_DISCONNECTED", TypeMQTTv3, KindTerminal},

	StateBluetoothPermissionDenied: {"BLUETOOTH_PERMISSION_DENIED", TypeBluetooth, KindFailure},
	StateBluetoothNoDevice:         {"BLUETOOTH_NO_DEVICE", TypeBluetooth, KindFailure},
	StateBluetoothConnecting:       {"BLUETOOTH_CONNECTING", TypeBluetooth, KindProgress},
	StateBluetoothConnected:        {"BLUETOOTH_CONNECTED", TypeBluetooth, KindReady},
	StateBluetoothConnectionFailed: {"BLUETOOTH_CONNECTION_FAILED", TypeBluetooth, KindFailure},
	StateBluetoothError:            {"BLUETOOTH_ERROR", TypeBluetooth, KindError},
	StateBluetoothDisconnected:     {"BLUETOOTH_DISCONNECTED", TypeBluetooth, KindTerminal},

	StateBluetoothLEPermissionDenied:      {"BLUETOOTH_LE_PERMISSION_DENIED", TypeBluetoothLE, KindFailure},
	StateBluetoothLEUnsupported:           {"BLUETOOTH_LE_UNSUPPORTED", TypeBluetoothLE, KindFailure},
	StateBluetoothLEAdvertiserUnavailable: {"BLUETOOTH_LE_ADVERTISER_UNAVAILABLE", TypeBluetoothLE, KindFailure},
	StateBluetoothLEGattServerFailed:      {"BLUETOOTH_LE_GATT_SERVER_FAILED", TypeBluetoothLE, KindFailure},
	StateBluetoothLEAdvertising:           {"BLUETOOTH_LE_ADVERTISING", TypeBluetoothLE, KindReady},
	StateBluetoothLEAdvertiseFailed:       {"BLUETOOTH_LE_ADVERTISE_FAILED", TypeBluetoothLE, KindFailure},
	StateBluetoothLEClientConnected:       {"BLUETOOTH_LE_CLIENT_CONNECTED", TypeBluetoothLE, KindReady},
	StateBluetoothLEClientDisconnected:    {"BLUETOOTH_LE_CLIENT_DISCONNECTED", TypeBluetoothLE, KindReady},
	StateBluetoothLENotifyFailed:          {"BLUETOOTH_LE_NOTIFY_FAILED", TypeBluetoothLE, KindError},
	StateBluetoothLEDisconnected:          {"BLUETOOTH_LE_DISCONNECTED", TypeBluetoothLE, KindTerminal},
}

// States returns every declared state in declaration order, StateNone first.
func States() []State {
	out := make([]State, 0, stateCount)
	for s := StateNone; s < stateCount; s++ {
		out = append(out, s)
	}
	return out
}

// Valid reports whether s is a declared state.
func (s State) Valid() bool {
	return s >= StateNone && s < stateCount
}

func (s State) String() string {
	if !s.Valid() {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateTable[s].name
}

// Transport returns the transport family that owns s. MQTT states are shared
// by the v3 and v5 transports and report TypeMQTTv3. StateNone returns 0.
func (s State) Transport() Type {
	if !s.Valid() {
		return 0
	}
	return stateTable[s].transport
}

// BelongsTo reports whether a connection of type t may publish s.
func (s State) BelongsTo(t Type) bool {
	if s == StateNone {
		return true
	}
	owner := s.Transport()
	if owner == TypeMQTTv3 {
		return t == TypeMQTTv3 || t == TypeMQTTv5
	}
	return owner == t
}

// Kind classifies s for lifecycle bookkeeping.
func (s State) Kind() StateKind {
	if !s.Valid() {
		return KindInitial
	}
	return stateTable[s].kind
}

// ParseState converts the text form of a state into a State.
func ParseState(name string) (State, error) {
	norm := strings.ToUpper(strings.TrimSpace(name))
	for s := StateNone; s < stateCount; s++ {
		if stateTable[s].name == norm {
			return s, nil
		}
	}
	return StateNone, fmt.Errorf("%w: %q", ErrUnknownState, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownState, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
