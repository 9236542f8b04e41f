// Package websocket implements the WebSocket client and server transports.
//
// Client connects to a ws:// or wss:// URL with nhooyr.io/websocket. Open,
// message, error and close events from the connection are funnelled through
// one handler each; a close observed before the connection ever opened is
// reported as WEBSOCKET_CONNECTION_TIMEOUT rather than WEBSOCKET_DISCONNECTED,
// because it means the initial handshake failed.
//
// Server listens on the Wi-Fi IPv4 address (or the wildcard address) and
// accepts any number of clients with gorilla/websocket. SendData broadcasts
// one text frame to every connected client. Errors tied to a single client
// are logged only; errors of the server itself publish WEBSOCKET_SERVER_ERROR.
// The upgrade handler is mounted on a chi router on every path.
//
// A failed SendData publishes WEBSOCKET_SEND_FAILED or
// WEBSOCKET_SERVER_SEND_FAILED and leaves the connection up.
package websocket
