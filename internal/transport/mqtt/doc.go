// Package mqtt implements the MQTT v3.1.1 and v5 transports.
//
// The two versions are separate state machines over the shared MQTT_*
// states because their client libraries differ in wire semantics:
//
//   - ClientV3 uses eclipse/paho.mqtt.golang and additionally reports broker
//     authentication refusals as MQTT_AUTH_FAILED.
//   - ClientV5 uses eclipse/paho.golang over a connection it dials itself
//     (TCP, TLS or WebSocket) and distinguishes only timeouts from other
//     failures.
//
// # Broker URL
//
// The broker URL is derived at Setup from the scheme flags:
//
//	useSSL=false useWebsocket=false  tcp://host:port
//	useSSL=true  useWebsocket=false  ssl://host:port
//	useSSL=false useWebsocket=true   ws://host:port/mqtt
//	useSSL=true  useWebsocket=true   wss://host:port/mqtt
//
// # Reconnect Policy
//
// Automatic reconnect is disabled. Every loss of the broker connection is
// terminal (MQTT_CONNECTION_LOST) and the caller decides whether to retry.
//
// # Topics
//
// SendData publishes to the configured topic with the configured QoS. A
// failed publish reports MQTT_PUBLISH_FAILED and leaves the session up.
// Once the broker has acknowledged the connection the transport subscribes
// to the fixed inbound topic InboundTopic; its messages feed Received.
//
// # Usage
//
//	c := mqtt.NewV3(cfg, logger)
//	c.Setup(ctx)
//	if c.States().Current() == connection.StateMQTTConnected {
//	    c.SendData(ctx, `{"button":"A","pressed":true}`)
//	}
//	defer c.TearDown(ctx)
package mqtt
