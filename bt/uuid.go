package bt

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// BaseUUID is the Bluetooth Base UUID. 16-bit and 32-bit service UUIDs
// are shorthand for a 128-bit UUID with the short value substituted
// into the first four bytes of the base.
var BaseUUID = uuid.MustParse("00000000-0000-1000-8000-00805F9B34FB")

// UuidFrom16Bit expands a 16-bit Bluetooth UUID to its 128-bit form.
func UuidFrom16Bit(v uint16) uuid.UUID {
	u := BaseUUID
	binary.BigEndian.PutUint16(u[2:4], v)
	return u
}

// UuidFrom32Bit expands a 32-bit Bluetooth UUID to its 128-bit form.
func UuidFrom32Bit(v uint32) uuid.UUID {
	u := BaseUUID
	binary.BigEndian.PutUint32(u[0:4], v)
	return u
}

// UuidAs16Bit returns the 16-bit shorthand of u, if u is a 16-bit
// Bluetooth UUID expanded onto the base.
func UuidAs16Bit(u uuid.UUID) (uint16, bool) {
	if !UuidIs16Bit(u) {
		return 0, false
	}
	return binary.BigEndian.Uint16(u[2:4]), true
}

// UuidIs16Bit reports whether u is a 16-bit UUID on the Bluetooth base.
func UuidIs16Bit(u uuid.UUID) bool {
	if u[0] != 0 || u[1] != 0 {
		return false
	}
	rest := BaseUUID
	cmp := u
	cmp[2], cmp[3] = 0, 0
	return cmp == rest
}
