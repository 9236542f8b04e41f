package transport

import (
	"fmt"

	"github.com/nerrad567/remotepad/internal/connection"
	"github.com/nerrad567/remotepad/internal/infrastructure/config"
	"github.com/nerrad567/remotepad/internal/infrastructure/logging"
	"github.com/nerrad567/remotepad/internal/infrastructure/network"
	"github.com/nerrad567/remotepad/internal/transport/bluetooth"
	"github.com/nerrad567/remotepad/internal/transport/mqtt"
	"github.com/nerrad567/remotepad/internal/transport/tcp"
	"github.com/nerrad567/remotepad/internal/transport/udp"
	"github.com/nerrad567/remotepad/internal/transport/websocket"
)

// Environment carries the ambient collaborators some transports need.
// Zero fields are allowed: a nil Logger discards output, a nil Network
// makes a Wi-Fi bound WebSocket server report WIFI_DISABLED, and nil
// Bluetooth platforms make the Bluetooth transports fail their Setup.
type Environment struct {
	Logger      *logging.Logger
	Network     network.Info
	Bluetooth   bluetooth.ClassicAdapter
	BluetoothLE bluetooth.Peripheral
}

// New decodes raw as the configuration for t and returns the transport.
//
// A malformed or invalid configuration is an error. A t outside the closed
// set of connection types is a programming error and panics.
func New(t connection.Type, raw []byte, env Environment) (connection.Connection, error) {
	build, ok := builders[t]
	if !ok {
		panic(fmt.Sprintf("transport: no builder for connection type %d", int(t)))
	}

	cfg, err := connection.DecodeConfig(t, raw)
	if err != nil {
		return nil, fmt.Errorf("building %s connection: %w", t, err)
	}

	return build(cfg, env, env.logger(t)), nil
}

// NewFromProfile builds the transport selected by a loaded config profile.
func NewFromProfile(p config.ConnectionConfig, env Environment) (connection.Connection, error) {
	t, err := p.ConnectionType()
	if err != nil {
		return nil, err
	}
	raw, err := p.ParamsJSON()
	if err != nil {
		return nil, err
	}
	return New(t, raw, env)
}

func (e Environment) logger(t connection.Type) connection.Logger {
	if e.Logger == nil {
		return nil
	}
	return e.Logger.Transport(t.String())
}

type builder func(cfg connection.Config, env Environment, logger connection.Logger) connection.Connection

// builders holds one entry per connection type.
var builders = map[connection.Type]builder{
	connection.TypeTCP: func(cfg connection.Config, _ Environment, l connection.Logger) connection.Connection {
		return tcp.New(cfg.(connection.TCPConfig), l)
	},
	connection.TypeUDP: func(cfg connection.Config, _ Environment, l connection.Logger) connection.Connection {
		return udp.New(cfg.(connection.UDPConfig), l)
	},
	connection.TypeWebsocket: func(cfg connection.Config, _ Environment, l connection.Logger) connection.Connection {
		return websocket.NewClient(cfg.(connection.WebsocketConfig), l)
	},
	connection.TypeWebsocketServer: func(cfg connection.Config, env Environment, l connection.Logger) connection.Connection {
		return websocket.NewServer(cfg.(connection.WebsocketServerConfig), env.Network, l)
	},
	connection.TypeMQTTv3: func(cfg connection.Config, _ Environment, l connection.Logger) connection.Connection {
		return mqtt.NewV3(cfg.(connection.MqttConfig), l)
	},
	connection.TypeMQTTv5: func(cfg connection.Config, _ Environment, l connection.Logger) connection.Connection {
		return mqtt.NewV5(cfg.(connection.MqttConfig), l)
	},
	connection.TypeBluetooth: func(cfg connection.Config, env Environment, l connection.Logger) connection.Connection {
		return bluetooth.NewClassic(cfg.(connection.BluetoothConfig), env.Bluetooth, l)
	},
	connection.TypeBluetoothLE: func(cfg connection.Config, env Environment, l connection.Logger) connection.Connection {
		return bluetooth.NewLE(cfg.(connection.BluetoothLEConfig), env.BluetoothLE, l)
	},
}
