// Package sdp defines the service-discovery-protocol engine boundary
// and the in-memory discovery database the engine fills in. The
// discovery core drives the engine in rounds and walks the resulting
// records with the Find helpers.
package sdp

import (
	"github.com/google/uuid"

	"github.com/user/bluedisc/bt"
)

// Status is the completion status an SDP search reports.
type Status uint8

const (
	// Success means the search completed and matched records.
	Success Status = iota
	// ConnFailed means the SDP channel could not be established or
	// dropped mid-search. The only status treated as a hard failure.
	ConnFailed
	// NoRecsMatch means the search completed but nothing matched.
	NoRecsMatch
	// DBFull means the result database filled up before the peer ran
	// out of records. What was captured is still usable.
	DBFull
	// Busy means the engine already has a search in flight.
	Busy
)

func (s Status) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case ConnFailed:
		return "CONN_FAILED"
	case NoRecsMatch:
		return "NO_RECS_MATCH"
	case DBFull:
		return "DB_FULL"
	case Busy:
		return "BUSY"
	}
	return "UNKNOWN"
}

// Completed reports whether the protocol exchange itself finished.
// An empty or truncated result set still counts as completed; only a
// transport-level failure does not.
func (s Status) Completed() bool {
	return s == Success || s == NoRecsMatch || s == DBFull
}

// Well-known attribute IDs the discovery core reads out of records.
const (
	AttrIDProfileDescList   uint16 = 0x0009
	AttrIDSupportedFeatures uint16 = 0x0311
)

// Record is one SDP service record pulled from a peer.
type Record struct {
	RemoteAddr bt.Address

	// ServiceUUIDs holds every service-class and protocol UUID found
	// in the record, expanded to 128 bits.
	ServiceUUIDs []uuid.UUID

	// RfcommChannel is the RFCOMM server channel from the protocol
	// descriptor list, or -1 when the record has none.
	RfcommChannel int

	// Attributes maps attribute ID to raw attribute value for the
	// attributes the search requested.
	Attributes map[uint16][]byte

	// ProfileVersions maps profile UUID16 to the version number from
	// the profile descriptor list.
	ProfileVersions map[uint16]uint16
}

// DiscoveryDB is the result database one search round fills.
type DiscoveryDB struct {
	// Filter is the UUID list the round searched for.
	Filter []uuid.UUID

	// Records are the matched records in peer order.
	Records []*Record

	// Raw is the raw response payload, kept for dumpsys.
	Raw []byte
}

// ResultFn delivers the completion of one search round. It may be
// called from any goroutine; the discovery core re-posts it onto the
// main loop before touching session state.
type ResultFn func(addr bt.Address, status Status)

// Engine is the SDP protocol engine. One search round runs at a time;
// the engine reports completion through the callback after filling db.
type Engine interface {
	// ServiceSearchAttributeRequest starts a search against peer for
	// the UUIDs in db.Filter, filling db.Records before cb fires.
	ServiceSearchAttributeRequest(peer bt.Address, db *DiscoveryDB, cb ResultFn) error

	// CancelServiceSearch aborts an in-flight search, if any. The
	// pending callback fires with ConnFailed.
	CancelServiceSearch(peer bt.Address)
}
