// Package network discovers the device's Wi-Fi interface and its IPv4 address.
//
// Interface enumeration goes through github.com/wlynxg/anet, which works on
// Android where net.Interfaces is restricted by the platform's netlink policy.
package network
