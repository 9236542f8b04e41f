package bluetooth_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/remotepad/internal/connection"
	"github.com/nerrad567/remotepad/internal/connection/connectiontest"
	"github.com/nerrad567/remotepad/internal/transport/bluetooth"
	"github.com/nerrad567/remotepad/internal/transport/bluetooth/bluetoothtest"
)

var receiver = bluetooth.Device{Address: "AA:BB:CC:DD:EE:FF", Name: "receiver"}

func classicConfig() connection.BluetoothConfig {
	cfg := connection.DefaultBluetoothConfig()
	cfg.RemoteDevice = receiver.Address
	return cfg
}

func TestClassicConnectsSendsAndReceives(t *testing.T) {
	adapter := bluetoothtest.NewClassic(receiver)
	c := bluetooth.NewClassic(classicConfig(), adapter, nil)
	states := connectiontest.Record(t, c.States())
	inbound := connectiontest.Record(t, c.Received())

	c.Setup(context.Background())
	require.Equal(t, connection.StateBluetoothConnected, c.States().Current())
	assert.Equal(t, uuid.MustParse(connection.SerialPortServiceUUID), adapter.Service())

	peer := <-adapter.Peers

	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := peer.Read(buf)
		got <- string(buf[:n])
	}()
	c.SendData(context.Background(), "A:1")

	select {
	case v := <-got:
		assert.Equal(t, "A:1", v)
	case <-time.After(connectiontest.Timeout):
		t.Fatal("peer did not receive payload")
	}

	_, err := peer.Write([]byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ping"}, inbound.WaitLen(t, 1))

	c.TearDown(context.Background())

	assert.Equal(t, []connection.State{
		connection.StateNone,
		connection.StateBluetoothConnecting,
		connection.StateBluetoothConnected,
		connection.StateBluetoothDisconnected,
	}, states.WaitLen(t, 4))
}

func TestClassicPermissionDeniedDoesNotDial(t *testing.T) {
	adapter := bluetoothtest.NewClassic(receiver)
	adapter.Denied = true
	c := bluetooth.NewClassic(classicConfig(), adapter, nil)

	c.Setup(context.Background())

	assert.Equal(t, connection.StateBluetoothPermissionDenied, c.States().Current())
	assert.Zero(t, adapter.Dials())
}

func TestClassicWithoutPairedDevice(t *testing.T) {
	tests := []struct {
		name   string
		remote string
	}{
		{"no device selected", ""},
		{"device not paired", "11:22:33:44:55:66"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := bluetoothtest.NewClassic(receiver)
			cfg := classicConfig()
			cfg.RemoteDevice = tt.remote
			c := bluetooth.NewClassic(cfg, adapter, nil)

			c.Setup(context.Background())

			assert.Equal(t, connection.StateBluetoothNoDevice, c.States().Current())
			assert.Zero(t, adapter.Dials())
		})
	}
}

func TestClassicDialFailure(t *testing.T) {
	adapter := bluetoothtest.NewClassic(receiver)
	adapter.DialErr = errors.New("host is down")
	c := bluetooth.NewClassic(classicConfig(), adapter, nil)

	c.Setup(context.Background())

	assert.Equal(t, connection.StateBluetoothConnectionFailed, c.States().Current())
	assert.Equal(t, 1, adapter.Dials())
}

func TestClassicWithoutAdapter(t *testing.T) {
	c := bluetooth.NewClassic(classicConfig(), nil, nil)

	c.Setup(context.Background())

	assert.Equal(t, connection.StateBluetoothConnectionFailed, c.States().Current())
}

func TestClassicSendAfterPeerClosePublishesError(t *testing.T) {
	adapter := bluetoothtest.NewClassic(receiver)
	c := bluetooth.NewClassic(classicConfig(), adapter, nil)
	states := connectiontest.Record(t, c.States())

	c.Setup(context.Background())
	require.Equal(t, connection.StateBluetoothConnected, c.States().Current())

	peer := <-adapter.Peers
	require.NoError(t, peer.Close())

	c.SendData(context.Background(), "lost")

	assert.Eventually(t, func() bool {
		return slices.Contains(states.Values(), connection.StateBluetoothError)
	}, connectiontest.Timeout, 10*time.Millisecond)

	c.TearDown(context.Background())
	assert.Equal(t, connection.StateBluetoothDisconnected, c.States().Current())
}

func TestClassicPeerCloseDisconnects(t *testing.T) {
	adapter := bluetoothtest.NewClassic(receiver)
	c := bluetooth.NewClassic(classicConfig(), adapter, nil)

	c.Setup(context.Background())
	require.Equal(t, connection.StateBluetoothConnected, c.States().Current())

	peer := <-adapter.Peers
	require.NoError(t, peer.Close())

	connectiontest.AwaitState(t, c.States(), connection.StateBluetoothDisconnected)
}

func TestClassicSendWithoutSetupPublishesError(t *testing.T) {
	c := bluetooth.NewClassic(classicConfig(), bluetoothtest.NewClassic(receiver), nil)

	c.SendData(context.Background(), "x")

	assert.Equal(t, connection.StateBluetoothError, c.States().Current())
}

func TestClassicTearDownDuringDialEndsDisconnected(t *testing.T) {
	adapter := bluetoothtest.NewClassic(receiver)
	adapter.Block = true
	c := bluetooth.NewClassic(classicConfig(), adapter, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Setup(context.Background())
	}()

	connectiontest.AwaitState(t, c.States(), connection.StateBluetoothConnecting)
	c.TearDown(context.Background())

	select {
	case <-done:
	case <-time.After(connectiontest.Timeout):
		t.Fatal("Setup did not return after TearDown")
	}
	assert.Equal(t, connection.StateBluetoothDisconnected, c.States().Current())
}

func TestClassicTearDownWithoutSetup(t *testing.T) {
	c := bluetooth.NewClassic(classicConfig(), nil, nil)

	c.TearDown(context.Background())

	assert.Equal(t, connection.StateBluetoothDisconnected, c.States().Current())
}

func TestClassicType(t *testing.T) {
	c := bluetooth.NewClassic(classicConfig(), nil, nil)
	assert.Equal(t, connection.TypeBluetooth, c.Type())
}
