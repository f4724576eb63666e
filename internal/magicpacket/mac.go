// Package magicpacket parses Wake-on-LAN targets and passwords and builds
// the magic packet frame sent on the wire.
package magicpacket

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrMissingValue is returned when a required input is empty or blank.
	ErrMissingValue = errors.New("missing value")

	// ErrInvalidFormat is returned when an input is not a well formed MAC
	// address or SecureOn password.
	ErrInvalidFormat = errors.New("invalid format")
)

// macHexLen is the number of hex digits in a 48-bit hardware address.
const macHexLen = 12

// MAC is a 6 byte hardware address in network order.
type MAC [6]byte

// ParseMAC parses a MAC address such as "AA:BB:CC:DD:EE:FF",
// "aa-bb-cc-dd-ee-ff" or "AABB CCDD EEFF". Spaces, hyphens and colons are
// ignored anywhere in the input.
func ParseMAC(input string) (MAC, error) {
	var mac MAC

	if strings.TrimSpace(input) == "" {
		return mac, fmt.Errorf("%w: MAC address is not defined", ErrMissingValue)
	}
	if len(input) < macHexLen {
		return mac, fmt.Errorf("%w: MAC address %q is too short", ErrInvalidFormat, input)
	}

	var clean strings.Builder
	clean.Grow(macHexLen)
	for _, r := range input {
		switch {
		case isHexDigit(r):
			clean.WriteRune(r)
		case r == ' ', r == '-', r == ':':
		default:
			return mac, fmt.Errorf("%w: character %q is not a valid hexadecimal or separator value", ErrInvalidFormat, r)
		}
	}

	if clean.Len() != macHexLen {
		return mac, fmt.Errorf("%w: MAC address %q has %d hex digits, want %d", ErrInvalidFormat, input, clean.Len(), macHexLen)
	}

	if _, err := hex.Decode(mac[:], []byte(clean.String())); err != nil {
		return mac, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	return mac, nil
}

// String renders the address as upper-case colon separated pairs.
func (m MAC) String() string {
	return strings.ToUpper(net.HardwareAddr(m[:]).String())
}

// HardwareAddr returns a copy of the address as a net.HardwareAddr.
func (m MAC) HardwareAddr() net.HardwareAddr {
	hw := make(net.HardwareAddr, len(m))
	copy(hw, m[:])
	return hw
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
