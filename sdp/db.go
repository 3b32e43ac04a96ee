package sdp

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/user/bluedisc/bt"
)

// FindServiceInDb returns the first record after the cursor whose
// service UUIDs include the 16-bit UUID. A uuid16 of 0 matches any
// record. Pass nil to start from the beginning; pass the previous
// result to resume the walk behind it.
func FindServiceInDb(db *DiscoveryDB, uuid16 uint16, after *Record) *Record {
	started := after == nil
	for _, rec := range db.Records {
		if !started {
			if rec == after {
				started = true
			}
			continue
		}
		if uuid16 == 0 || recHasUUID16(rec, uuid16) {
			return rec
		}
	}
	return nil
}

// FindServiceInDb128Bit returns the first record after the cursor that
// carries at least one UUID not expressible in 16 bits.
func FindServiceInDb128Bit(db *DiscoveryDB, after *Record) *Record {
	started := after == nil
	for _, rec := range db.Records {
		if !started {
			if rec == after {
				started = true
			}
			continue
		}
		for _, u := range rec.ServiceUUIDs {
			if !bt.UuidIs16Bit(u) {
				return rec
			}
		}
	}
	return nil
}

// FindServiceUUIDInRec returns the first 16-bit service UUID in the
// record, or 0 when the record has none.
func FindServiceUUIDInRec(rec *Record) uint16 {
	for _, u := range rec.ServiceUUIDs {
		if v, ok := bt.UuidAs16Bit(u); ok {
			return v
		}
	}
	return 0
}

// FindServiceUUIDInRec128Bit returns the first UUID in the record that
// is not a 16-bit shorthand.
func FindServiceUUIDInRec128Bit(rec *Record) (uuid.UUID, bool) {
	for _, u := range rec.ServiceUUIDs {
		if !bt.UuidIs16Bit(u) {
			return u, true
		}
	}
	return uuid.UUID{}, false
}

// FindRfcommScnInRec returns the RFCOMM server channel number from the
// record's protocol descriptor list.
func FindRfcommScnInRec(rec *Record) (int, bool) {
	if rec.RfcommChannel < 0 {
		return 0, false
	}
	return rec.RfcommChannel, true
}

// FindAttributeInRec returns the raw value of an attribute the search
// captured for this record.
func FindAttributeInRec(rec *Record, attrID uint16) ([]byte, bool) {
	v, ok := rec.Attributes[attrID]
	return v, ok
}

// FindProfileVersionInRec returns the version number listed for the
// given profile UUID16 in the record's profile descriptor list.
func FindProfileVersionInRec(rec *Record, profileUUID16 uint16) (uint16, bool) {
	v, ok := rec.ProfileVersions[profileUUID16]
	return v, ok
}

// AttrValueUint16 decodes a 2-byte big-endian attribute value, the
// encoding SDP uses for version and feature words.
func AttrValueUint16(v []byte) (uint16, bool) {
	if len(v) < 2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(v), true
}

func recHasUUID16(rec *Record, uuid16 uint16) bool {
	for _, u := range rec.ServiceUUIDs {
		if v, ok := bt.UuidAs16Bit(u); ok && v == uuid16 {
			return true
		}
	}
	return false
}
