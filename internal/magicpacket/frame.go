package magicpacket

import (
	"fmt"

	"github.com/mdlayher/wol"
)

// Frame sizes for each accepted password length.
const (
	FrameSize              = 6 + 16*6
	FrameSizeWithPassword4 = FrameSize + 4
	FrameSizeWithPassword6 = FrameSize + 6
)

// Frame is an encoded magic packet: 6 bytes of 0xFF, the target repeated
// 16 times, then the password if any.
type Frame []byte

// Build assembles the magic packet for mac, appending password when it is
// not empty.
func Build(mac MAC, password Password) Frame {
	switch len(password) {
	case 0, 4, 6:
	default:
		panic(fmt.Sprintf("magicpacket: password length %d", len(password)))
	}

	p := &wol.MagicPacket{
		Target:   mac.HardwareAddr(),
		Password: password,
	}

	b, err := p.MarshalBinary()
	if err != nil {
		// Both inputs are validated types, so this is a bug.
		panic(fmt.Sprintf("magicpacket: building frame for %s: %v", mac, err))
	}

	return Frame(b)
}
