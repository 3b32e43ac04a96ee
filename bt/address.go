package bt

import (
	"fmt"
	"strings"
)

// Address is a 6-byte Bluetooth device address (BD_ADDR), printed
// big-endian as "AA:BB:CC:DD:EE:FF".
type Address [6]byte

// EmptyAddress is the all-zero address used as a "no peer" sentinel.
var EmptyAddress = Address{}

// ParseAddress parses a colon-separated address string.
func ParseAddress(s string) (Address, error) {
	var a Address
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return a, fmt.Errorf("bt: invalid address %q", s)
	}
	for i, p := range parts {
		var b byte
		if _, err := fmt.Sscanf(p, "%02x", &b); err != nil {
			return a, fmt.Errorf("bt: invalid address octet %q in %q", p, s)
		}
		a[i] = b
	}
	return a, nil
}

// MustParseAddress is ParseAddress for tests and tables; panics on bad input.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// IsEmpty reports whether the address is the all-zero sentinel.
func (a Address) IsEmpty() bool {
	return a == EmptyAddress
}
