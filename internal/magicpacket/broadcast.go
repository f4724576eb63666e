package magicpacket

import (
	"fmt"
	"net/netip"
	"strings"
)

// ParseBroadcast parses the IPv4 address magic packets are sent to.
func ParseBroadcast(input string) (netip.Addr, error) {
	if strings.TrimSpace(input) == "" {
		return netip.Addr{}, fmt.Errorf("%w: broadcast address is not defined", ErrMissingValue)
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(input))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: broadcast address: %v", ErrInvalidFormat, err)
	}

	addr = addr.Unmap()
	if !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%w: broadcast address %s is not IPv4", ErrInvalidFormat, addr)
	}

	return addr, nil
}
