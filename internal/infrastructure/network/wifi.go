package network

import (
	"fmt"
	"net"
	"strings"

	"github.com/wlynxg/anet"
)

// Info answers questions about the local network.
type Info interface {
	// WifiIPv4 returns the IPv4 address of the first Wi-Fi interface that is up.
	// It returns ErrWifiDisabled when no such interface is up.
	WifiIPv4() (net.IP, error)
}

// defaultWifiPrefixes match the usual Linux and Android Wi-Fi interface names.
var defaultWifiPrefixes = []string{"wlan", "wlp", "wl"}

// Interfaces implements Info over the host's network interfaces.
type Interfaces struct {
	// Prefixes lists interface name prefixes treated as Wi-Fi.
	Prefixes []string

	// list and addrs are replaceable in tests.
	list  func() ([]net.Interface, error)
	addrs func(*net.Interface) ([]net.Addr, error)
}

// NewInterfaces returns an Info backed by anet. Empty prefixes select the defaults.
func NewInterfaces(prefixes []string) *Interfaces {
	if len(prefixes) == 0 {
		prefixes = defaultWifiPrefixes
	}
	return &Interfaces{
		Prefixes: prefixes,
		list:     anet.Interfaces,
		addrs:    anet.InterfaceAddrsByInterface,
	}
}

// WifiIPv4 implements Info.
func (n *Interfaces) WifiIPv4() (net.IP, error) {
	ifaces, err := n.list()
	if err != nil {
		return nil, fmt.Errorf("listing interfaces: %w", err)
	}

	sawWifi := false
	for i := range ifaces {
		iface := &ifaces[i]
		if !n.isWifi(iface.Name) || iface.Flags&net.FlagUp == 0 {
			continue
		}
		sawWifi = true

		addrs, err := n.addrs(iface)
		if err != nil {
			continue
		}
		if ip := firstIPv4(addrs); ip != nil {
			return ip, nil
		}
	}

	if sawWifi {
		return nil, ErrNoAddress
	}
	return nil, ErrWifiDisabled
}

func (n *Interfaces) isWifi(name string) bool {
	for _, p := range n.Prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func firstIPv4(addrs []net.Addr) net.IP {
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if v4 := ip.To4(); v4 != nil && !v4.IsLoopback() {
			return v4
		}
	}
	return nil
}

// Static is an Info with a fixed answer, for hosts that learn the Wi-Fi
// state from the platform rather than from interface enumeration.
type Static struct {
	IP  net.IP
	Err error
}

// WifiIPv4 implements Info.
func (s Static) WifiIPv4() (net.IP, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.IP == nil {
		return nil, ErrWifiDisabled
	}
	return s.IP, nil
}
