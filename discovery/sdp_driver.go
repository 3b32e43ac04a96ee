package discovery

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/user/bluedisc/bt"
	"github.com/user/bluedisc/logger"
	"github.com/user/bluedisc/sdp"
)

// Config store keys for audio profile metadata captured during SDP.
const (
	propAvrcpControllerVersion  = "AvrcpControllerVersion"
	propAvrcpControllerFeatures = "AvrcpControllerFeatures"
)

// sdpSearchState is the resumable cursor for one peer's BR/EDR search.
// The search runs in rounds: round one targets the PnP/DeviceID record
// (which only yields an RFCOMM channel), round two issues one broad
// L2CAP-UUID query and filters the returned superset locally instead
// of querying each class.
type sdpSearchState struct {
	peer             bt.Address
	servicesToSearch bt.ServiceMask
	servicesFound    bt.ServiceMask
	serviceIndex     int
	reservedRound    bool

	scn      int
	scnFound bool

	db        *sdp.DiscoveryDB
	uuids     []uuid.UUID
	gattUUIDs []uuid.UUID
}

func (c *Coordinator) startSdpDiscovery(peer bt.Address) {
	c.sdpState = &sdpSearchState{
		peer:             peer,
		servicesToSearch: bt.AllServiceMask,
	}
	c.hist.record("sdp start for %s", peer)
	c.sdpNextRound()
}

// sdpNextRound issues the next search round, or completes the BR/EDR
// phase when no service bits remain.
func (c *Coordinator) sdpNextRound() {
	st := c.sdpState
	for st.serviceIndex < bt.MaxServiceID {
		id := bt.ServiceID(st.serviceIndex)
		if !st.servicesToSearch.Has(id) {
			st.serviceIndex++
			continue
		}

		var filter uuid.UUID
		if id == bt.ServiceIDReserved {
			// Targeted round for the user-service record.
			filter = bt.UuidFrom16Bit(bt.UUID16ServClassPnPInformation)
			st.servicesToSearch &^= id.Mask()
			st.reservedRound = true
		} else {
			// One broad query returns a superset of records; the
			// result walk filters locally, so clear every bit.
			filter = bt.UuidFrom16Bit(bt.UUID16ProtocolL2CAP)
			st.servicesToSearch = 0
			st.reservedRound = false
		}

		st.db = &sdp.DiscoveryDB{Filter: []uuid.UUID{filter}}
		c.hist.record("sdp search round for %s filter=%s", st.peer, filter)
		logger.Trace("disc", "sdp ServiceSearchAttributeRequest peer=%s filter=%s", st.peer, filter)
		err := c.sdpEngine.ServiceSearchAttributeRequest(st.peer, st.db, c.onSdpEngineResult)
		if err != nil {
			logger.Error("disc", "sdp request for %s failed to start: %v", st.peer, err)
			c.loop.Post(func() {
				c.execute(sdpResultEvent{status: sdp.ConnFailed})
			})
		}
		return
	}
	c.sdpComplete()
}

// onSdpEngineResult is handed to the SDP engine; it may fire on any
// goroutine and re-posts onto the main loop.
func (c *Coordinator) onSdpEngineResult(addr bt.Address, status sdp.Status) {
	logger.Trace("disc", "sdp callback peer=%s status=%s", addr, status)
	c.loop.Post(func() {
		c.execute(sdpResultEvent{status: status})
	})
}

// onSdpResult processes one round's completion on the main loop.
func (c *Coordinator) onSdpResult(status sdp.Status) {
	st := c.sdpState
	if st == nil {
		logger.Warn("disc", "sdp result with no search in progress, ignoring")
		return
	}

	if !status.Completed() {
		// Transport-level failure ends only the BR/EDR phase; a
		// sibling LE phase keeps running.
		logger.Warn("disc", "sdp search for %s failed: %s", st.peer, status)
		c.execute(transportResultEvent{res: transportResult{
			transport: bt.TransportBrEdr,
			status:    bt.StatusFailure,
		}})
		return
	}

	if st.reservedRound {
		c.sdpProcessUserService(st)
	} else {
		c.sdpProcessBroadRound(st)
	}

	if st.servicesToSearch != 0 {
		c.sdpNextRound()
		return
	}
	c.sdpComplete()
}

// sdpProcessUserService pulls the RFCOMM channel off the targeted
// PnP/DeviceID round, if the peer has such a record.
func (c *Coordinator) sdpProcessUserService(st *sdpSearchState) {
	rec := sdp.FindServiceInDb(st.db, bt.UUID16ServClassPnPInformation, nil)
	if rec == nil {
		return
	}
	if scn, ok := sdp.FindRfcommScnInRec(rec); ok {
		st.scn = scn
		st.scnFound = true
		logger.Debug("disc", "user service scn %d for %s", scn, st.peer)
	}
}

// sdpProcessBroadRound filters the broad round's record superset
// against the well-known table, walking it in fixed table order, then
// appends 128-bit UUIDs in a second pass without dedup.
func (c *Coordinator) sdpProcessBroadRound(st *sdpSearchState) {
	for idx := int(bt.ServiceIDReserved) + 1; idx < bt.MaxServiceID; idx++ {
		id := bt.ServiceID(idx)
		if id == bt.ServiceIDGatt {
			c.sdpCollectGattServices(st)
			continue
		}
		rec := sdp.FindServiceInDb(st.db, id.UUID16(), nil)
		if rec == nil {
			continue
		}
		st.servicesFound |= id.Mask()
		st.uuids = append(st.uuids, bt.UuidFrom16Bit(id.UUID16()))
		if id == bt.ServiceIDAVRemoteControl {
			c.storeAvrcpProperties(st.peer, rec)
		}
	}

	for rec := sdp.FindServiceInDb128Bit(st.db, nil); rec != nil; rec = sdp.FindServiceInDb128Bit(st.db, rec) {
		if u, ok := sdp.FindServiceUUIDInRec128Bit(rec); ok {
			st.uuids = append(st.uuids, u)
		}
	}
}

// sdpCollectGattServices is the catch-all pass: GATT-based services
// exposed through SDP records carry 16-bit UUIDs outside the
// well-known class table. They are reported through the GATT-shaped
// callback, not merged into the classic list.
func (c *Coordinator) sdpCollectGattServices(st *sdpSearchState) {
	for rec := sdp.FindServiceInDb(st.db, 0, nil); rec != nil; rec = sdp.FindServiceInDb(st.db, 0, rec) {
		for _, u := range rec.ServiceUUIDs {
			v, ok := bt.UuidAs16Bit(u)
			if !ok {
				continue
			}
			if _, known := bt.ServiceIDForUUID16(v); known {
				continue
			}
			st.gattUUIDs = append(st.gattUUIDs, u)
		}
	}
	if len(st.gattUUIDs) > 0 {
		st.servicesFound |= bt.ServiceIDGatt.Mask()
	}
}

// storeAvrcpProperties writes the peer's AVRCP version and feature
// word through to the config store so the AV layer can read them
// without re-running SDP.
func (c *Coordinator) storeAvrcpProperties(peer bt.Address, rec *sdp.Record) {
	if c.store == nil {
		return
	}
	section := peer.String()

	if ver, ok := sdp.FindProfileVersionInRec(rec, bt.UUID16ServClassAVRemoteControl); ok {
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, ver)
		if err := c.store.SetBin(section, propAvrcpControllerVersion, buf); err != nil {
			logger.Warn("disc", "failed to store avrcp version for %s: %v", peer, err)
		}
	}
	if raw, ok := sdp.FindAttributeInRec(rec, sdp.AttrIDSupportedFeatures); ok {
		if feat, ok := sdp.AttrValueUint16(raw); ok {
			buf := make([]byte, 2)
			binary.LittleEndian.PutUint16(buf, feat)
			if err := c.store.SetBin(section, propAvrcpControllerFeatures, buf); err != nil {
				logger.Warn("disc", "failed to store avrcp features for %s: %v", peer, err)
			}
		}
	}
}

// sdpComplete ends the BR/EDR phase with the accumulated results.
// Empty and truncated result sets are still a completed protocol
// exchange, so the status is success.
func (c *Coordinator) sdpComplete() {
	st := c.sdpState
	logger.Info("disc", "sdp phase complete for %s: services=%08x uuids=%d scn_found=%v",
		st.peer, uint32(st.servicesFound), len(st.uuids), st.scnFound)
	c.execute(transportResultEvent{res: transportResult{
		transport: bt.TransportBrEdr,
		status:    bt.StatusSuccess,
		services:  st.servicesFound,
		uuids:     st.uuids,
		gattUUIDs: st.gattUUIDs,
		scn:       st.scn,
		scnFound:  st.scnFound,
	}})
}
