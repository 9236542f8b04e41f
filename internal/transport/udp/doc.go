// Package udp implements the write-only, fire-and-forget UDP transport.
//
// There is no handshake: Setup only opens a local ephemeral socket and
// publishes UDP_SOCKET_OPEN or UDP_SOCKET_FAILED. Each SendData resolves the
// destination host and writes one datagram; a failure publishes UDP_ERROR and
// is otherwise swallowed. TearDown closes the socket and publishes
// UDP_DISCONNECTED.
package udp
