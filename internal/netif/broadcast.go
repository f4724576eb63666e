package netif

import (
	"encoding/binary"
	"net/netip"
)

// ComputeBroadcast returns the IPv4 broadcast address of the subnet that
// address belongs to: address | ^mask, both read as big-endian integers.
func ComputeBroadcast(address, mask [4]byte) [4]byte {
	a := binary.BigEndian.Uint32(address[:])
	m := binary.BigEndian.Uint32(mask[:])

	var broadcast [4]byte
	binary.BigEndian.PutUint32(broadcast[:], a|^m)
	return broadcast
}

// BroadcastFor computes the broadcast address for an address/mask pair. It
// reports false when either side is not IPv4 or the mask is 0.0.0.0.
func BroadcastFor(address, mask netip.Addr) (netip.Addr, bool) {
	address, mask = address.Unmap(), mask.Unmap()
	if !address.Is4() || !mask.Is4() || mask == netip.IPv4Unspecified() {
		return netip.Addr{}, false
	}
	return netip.AddrFrom4(ComputeBroadcast(address.As4(), mask.As4())), true
}
