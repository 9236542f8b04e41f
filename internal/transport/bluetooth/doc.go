// Package bluetooth implements the Bluetooth Classic (RFCOMM) and Bluetooth
// LE (GATT server + advertiser) transports.
//
// Both transports talk to the radio through small platform interfaces
// (ClassicAdapter, Peripheral) so the state machines are independent of the
// host stack. On Linux, NewRFCOMMAdapter dials RFCOMM sockets directly; the
// bluetoothtest package provides an in-memory simulator of both roles.
//
// # Classic
//
// Setup checks the connect permission first and reports
// BLUETOOTH_PERMISSION_DENIED without touching the radio. The remote device
// must already be paired (BLUETOOTH_NO_DEVICE otherwise). The blocking RFCOMM
// connect runs on its own goroutine; success and failure are the only
// outcomes. Inbound bytes are published on Received as they arrive.
//
// # LE
//
// Setup verifies the permissions gated by the platform SDK level, opens a GATT
// server exposing one notify-only characteristic with one descriptor, then
// starts advertising the service. One central is supported at a time: when a
// central connects, advertising stops so no second central can connect; when
// it disconnects, advertising stays stopped. Advertising only resumes through
// a new Setup, so the pad never silently reconnects.
//
// SendData notifies the connected central. Servers implementing
// ValueNotifier receive the value inline; otherwise the value is set on the
// characteristic before the legacy notify call.
package bluetooth
