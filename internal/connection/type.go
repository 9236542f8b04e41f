package connection

import (
	"fmt"
	"strings"
)

// Type identifies which transport a Connection implements.
// The set is closed; the zero value is not a valid transport.
type Type int

// Transport kinds.
const (
	TypeTCP Type = iota + 1
	TypeUDP
	TypeWebsocket
	TypeWebsocketServer
	TypeMQTTv3
	TypeMQTTv5
	TypeBluetooth
	TypeBluetoothLE
)

var typeNames = map[Type]string{
	TypeTCP:             "TCP",
	TypeUDP:             "UDP",
	TypeWebsocket:       "WEBSOCKET",
	TypeWebsocketServer: "WEBSOCKET_SERVER",
	TypeMQTTv3:          "MQTT_V3",
	TypeMQTTv5:          "MQTT_V5",
	TypeBluetooth:       "BLUETOOTH",
	TypeBluetoothLE:     "BLUETOOTH_LE",
}

// Types returns every transport kind in declaration order.
func Types() []Type {
	return []Type{
		TypeTCP,
		TypeUDP,
		TypeWebsocket,
		TypeWebsocketServer,
		TypeMQTTv3,
		TypeMQTTv5,
		TypeBluetooth,
		TypeBluetoothLE,
	}
}

// Valid reports whether t is one of the declared transport kinds.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType converts the text form of a transport kind (case-insensitive,
// "-" accepted in place of "_") into a Type.
func ParseType(s string) (Type, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for t, name := range typeNames {
		if name == norm {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
