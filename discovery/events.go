package discovery

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/user/bluedisc/bt"
	"github.com/user/bluedisc/sdp"
)

// event is the closed set of inputs to the state machine. Every
// transition goes through Coordinator.execute with one of these.
type event interface {
	eventName() string
}

// apiDiscoverEvent carries a new discovery request from a caller.
type apiDiscoverEvent struct {
	req DiscoveryRequest
}

func (apiDiscoverEvent) eventName() string { return "API_DISCOVER" }

// sdpResultEvent carries the SDP engine's completion of one search
// round for the active peer.
type sdpResultEvent struct {
	status sdp.Status
}

func (sdpResultEvent) eventName() string { return "SDP_RESULT" }

// transportResult is one transport's finished contribution to the
// merged result.
type transportResult struct {
	transport bt.Transport
	status    bt.Status
	services  bt.ServiceMask
	uuids     []uuid.UUID

	// gattUUIDs are GATT service UUIDs: read over ATT for the LE
	// transport, or found in SDP records for BR/EDR.
	gattUUIDs []uuid.UUID

	scn      int
	scnFound bool
}

// transportResultEvent marks one transport's phase complete.
type transportResultEvent struct {
	res transportResult
}

func (transportResultEvent) eventName() string { return "TRANSPORT_RESULT" }

// closeTimeoutEvent fires when the GATT close-delay grace period for
// an idle ATT connection elapses.
type closeTimeoutEvent struct{}

func (closeTimeoutEvent) eventName() string { return "CLOSE_TIMEOUT" }

// describe renders an event for the history buffer.
func describe(ev event) string {
	switch e := ev.(type) {
	case apiDiscoverEvent:
		return fmt.Sprintf("API_DISCOVER peer=%s transport=%s", e.req.Peer, e.req.Transport)
	case sdpResultEvent:
		return fmt.Sprintf("SDP_RESULT status=%s", e.status)
	case transportResultEvent:
		return fmt.Sprintf("TRANSPORT_RESULT transport=%s status=%s uuids=%d",
			e.res.transport, e.res.status, len(e.res.uuids)+len(e.res.gattUUIDs))
	case closeTimeoutEvent:
		return "CLOSE_TIMEOUT"
	}
	return ev.eventName()
}
