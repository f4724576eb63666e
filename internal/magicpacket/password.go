package magicpacket

import (
	"encoding/hex"
	"fmt"
)

// Password is an optional SecureOn password. A nil Password means no
// password field is appended to the frame.
type Password []byte

// ParsePassword decodes a SecureOn password given as 8 or 12 hex digits.
// An empty input yields a nil Password and no error.
func ParsePassword(input string) (Password, error) {
	if input == "" {
		return nil, nil
	}

	if len(input) != 8 && len(input) != 12 {
		return nil, fmt.Errorf("%w: password must be 4 or 6 bytes", ErrInvalidFormat)
	}

	b, err := hex.DecodeString(input)
	if err != nil {
		return nil, fmt.Errorf("%w: password is not hexadecimal: %v", ErrInvalidFormat, err)
	}

	return Password(b), nil
}
