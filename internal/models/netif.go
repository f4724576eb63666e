package models

import "net/netip"

// InterfaceView is a read-only snapshot of a host network interface.
type InterfaceView struct {
	Name     string
	Up       bool
	Loopback bool
	Unicast  []UnicastAddress
}

// UnicastAddress is a unicast address and its IPv4 mask. Entries without an
// IPv4 mask (IPv6 addresses) carry the unspecified address 0.0.0.0.
type UnicastAddress struct {
	Address netip.Addr
	Mask    netip.Addr
}
