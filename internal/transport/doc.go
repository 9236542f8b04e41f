// Package transport builds connections from persisted profiles.
//
// New is a dispatch table over connection.Type: it decodes the serialized
// configuration for the type and constructs the matching transport from the
// subpackages (tcp, udp, websocket, mqtt, bluetooth). Platform collaborators
// that only some transports need are passed in an Environment.
package transport
