package mqtt

// InboundTopic is subscribed to after every successful connect. Commands
// for the pad (e.g. vibrate, layout changes) arrive here.
const InboundTopic = "remotepad/in"

// websocketPath is the HTTP path brokers serve MQTT-over-WebSocket on.
const websocketPath = "/mqtt"
