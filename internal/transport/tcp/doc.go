// Package tcp implements the write-only TCP transport.
//
// Setup dials the configured host within timeoutSecs. Payloads are written
// to an ordered byte stream, so concurrent SendData calls are serialized by a
// mutex: two producers never interleave bytes of their payloads.
//
// States: TCP_CONNECTING → TCP_CONNECTED | TCP_CONNECTION_FAILED |
// TCP_CONNECTION_TIMEOUT; TCP_ERROR on a failed write;
// TCP_DISCONNECTING → TCP_DISCONNECTED on TearDown.
package tcp
