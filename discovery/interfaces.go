// Package discovery implements the service-discovery coordinator: one
// peer at a time, BR/EDR via SDP and LE via GATT, merged into a single
// result per request. All session state lives on a single main loop;
// protocol engines call back from their own goroutines and the
// coordinator re-posts those callbacks before touching the session.
package discovery

import (
	"github.com/google/uuid"

	"github.com/user/bluedisc/bt"
)

// PeerRegistry is the device-record module the coordinator consults
// for transport selection and peer metadata. It is maintained by the
// security/connection layers, not by discovery.
type PeerRegistry interface {
	// ReadDevInfo returns the known device type and LE address type.
	ReadDevInfo(peer bt.Address) (bt.DeviceType, bt.AddrType)

	// IsAclUp reports whether an ACL on the given transport is up.
	IsAclUp(peer bt.Address, transport bt.Transport) bool

	// SameDevice reports whether two addresses resolve to the same
	// device record (RPA / identity-address aliasing).
	SameDevice(a, b bt.Address) bool

	// HidSdpDisabled reports the device quirk that suppresses SDP
	// probes for HID peers whose profile data came with bonding.
	HidSdpDisabled(peer bt.Address) bool

	// ReadRemoteName returns the cached peer name, or "".
	ReadRemoteName(peer bt.Address) string
}

// Gap is the LE GAP surface the coordinator pokes after an LE phase.
type Gap interface {
	// ReadPeerPrefConnParams kicks off a read of the peer's preferred
	// connection parameters. Informational; discovery does not wait.
	ReadPeerPrefConnParams(peer bt.Address)
}

// ServiceResult is the merged outcome of one discovery request.
type ServiceResult struct {
	Peer     bt.Address
	Services bt.ServiceMask
	UUIDs    []uuid.UUID
	Status   bt.Status

	// Scn is the RFCOMM channel found on the peer's user-service
	// record, valid only when ScnFound is set.
	Scn      int
	ScnFound bool
}

// LegacyStatus reproduces the packed encoding older callers expect:
// a found RFCOMM channel is folded into the status as 3+scn. New code
// should read Scn/ScnFound and ignore this.
func (r ServiceResult) LegacyStatus() bt.Status {
	if r.ScnFound {
		return bt.Status(3 + r.Scn)
	}
	return r.Status
}

// Callbacks receives discovery results. Both methods are invoked on
// the coordinator's main loop; implementations must not block.
type Callbacks interface {
	// OnServiceDiscoveryResults delivers the merged result. Fires
	// exactly once per request, after every requested transport has
	// completed.
	OnServiceDiscoveryResults(result ServiceResult)

	// OnGattResults delivers GATT service UUIDs separately from the
	// classic profile UUIDs: transportLE is true for UUIDs read over
	// an ATT connection, false for GATT services seen in SDP records.
	OnGattResults(peer bt.Address, name string, services []uuid.UUID, transportLE bool)
}

// DiscoveryRequest is one caller's ask: probe peer on the given
// transport (or TransportAuto) and report through cb.
type DiscoveryRequest struct {
	Peer      bt.Address
	Transport bt.Transport
	Cb        Callbacks
}
