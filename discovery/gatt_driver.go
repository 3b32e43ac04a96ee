package discovery

import (
	"github.com/google/uuid"

	"github.com/user/bluedisc/bt"
	"github.com/user/bluedisc/gattc"
	"github.com/user/bluedisc/logger"
)

// gattCallbacks bridges the GATT engine's callbacks onto the main
// loop. The engine may invoke them from any goroutine.
type gattCallbacks struct {
	c *Coordinator
}

func (g gattCallbacks) OnRegistered(status gattc.Status, clientIf gattc.ClientIf) {
	logger.Trace("disc", "gatt registered status=%s client_if=%d", status, clientIf)
	g.c.loop.Post(func() { g.c.onGattRegistered(status, clientIf) })
}

func (g gattCallbacks) OnOpen(status gattc.Status, connID gattc.ConnID, clientIf gattc.ClientIf, peer bt.Address) {
	logger.Trace("disc", "gatt open status=%s conn_id=0x%04X peer=%s", status, uint16(connID), peer)
	g.c.loop.Post(func() { g.c.onGattOpen(status, connID, peer) })
}

func (g gattCallbacks) OnSearchComplete(connID gattc.ConnID, status gattc.Status) {
	logger.Trace("disc", "gatt search complete conn_id=0x%04X status=%s", uint16(connID), status)
	g.c.loop.Post(func() { g.c.onGattSearchComplete(connID, status) })
}

func (g gattCallbacks) OnClosed(status gattc.Status, connID gattc.ConnID, clientIf gattc.ClientIf, peer bt.Address) {
	logger.Trace("disc", "gatt closed status=%s conn_id=0x%04X peer=%s", status, uint16(connID), peer)
	g.c.loop.Post(func() { g.c.onGattClosed(connID, peer) })
}

// startGattDiscovery begins the LE phase for peer. The client
// registration is lazy and created exactly once for the stack's
// lifetime.
func (c *Coordinator) startGattDiscovery(peer bt.Address) {
	c.hist.record("gatt start for %s", peer)

	if !c.gattRegistered {
		c.gattStartQueued = true
		if c.gattRegistering {
			return
		}
		c.gattRegistering = true
		logger.Debug("disc", "registering gatt client")
		if err := c.gatt.Register(gattCallbacks{c: c}); err != nil {
			logger.Error("disc", "gatt client registration failed: %v", err)
			c.gattRegistering = false
			c.gattStartQueued = false
			c.gattPhaseFailed()
		}
		return
	}

	c.gattOpenOrReuse(peer)
}

func (c *Coordinator) gattOpenOrReuse(peer bt.Address) {
	// Reuse window: a connection parked pending-close for this peer
	// skips the open entirely.
	if c.connID != gattc.InvalidConnID && c.pendingClose == peer {
		c.closeAlarm.Cancel()
		c.pendingClose = bt.EmptyAddress
		c.hist.record("gatt reuse conn 0x%04X for %s", uint16(c.connID), peer)
		logger.Debug("disc", "reusing gatt conn 0x%04X for %s", uint16(c.connID), peer)
		c.gatt.ServiceSearchRequest(c.connID)
		return
	}

	// A parked connection to some other peer is of no use; reclaim it
	// before opening.
	if c.connID != gattc.InvalidConnID && !c.pendingClose.IsEmpty() {
		c.closeAlarm.Cancel()
		c.hist.record("gatt close parked conn for %s", c.pendingClose)
		c.gatt.Close(c.clientIf, c.pendingClose)
		c.pendingClose = bt.EmptyAddress
	}

	opportunistic := c.peers.IsAclUp(peer, bt.TransportLE)
	c.gattOpenPending = true
	c.connPeer = peer
	c.hist.record("gatt open for %s opportunistic=%v", peer, opportunistic)
	logger.Debug("disc", "opening gatt conn to %s (opportunistic=%v)", peer, opportunistic)
	c.gatt.Open(c.clientIf, peer, bt.TransportLE, true, opportunistic)
}

func (c *Coordinator) onGattRegistered(status gattc.Status, clientIf gattc.ClientIf) {
	c.gattRegistering = false
	queued := c.gattStartQueued
	c.gattStartQueued = false

	if status != gattc.StatusSuccess {
		logger.Error("disc", "gatt client registration rejected: %s", status)
		if queued {
			c.gattPhaseFailed()
		}
		return
	}

	c.gattRegistered = true
	c.clientIf = clientIf
	logger.Debug("disc", "gatt client registered as %d", clientIf)
	if queued && c.state == stateActive && c.outstanding.Has(bt.TransportLE) {
		c.gattOpenOrReuse(c.peer)
	}
}

func (c *Coordinator) onGattOpen(status gattc.Status, connID gattc.ConnID, peer bt.Address) {
	c.gattOpenPending = false

	if status != gattc.StatusSuccess {
		c.connPeer = bt.EmptyAddress
		if c.gattPhaseActive(peer) {
			logger.Warn("disc", "gatt open to %s failed: %s", peer, status)
			c.gattPhaseFailed()
		}
		return
	}

	c.connID = connID
	c.connPeer = peer
	if !c.gattPhaseActive(peer) {
		// Session moved on while the open was in flight; nothing will
		// reuse this connection.
		c.gatt.Close(c.clientIf, peer)
		return
	}
	c.gatt.ServiceSearchRequest(connID)
}

func (c *Coordinator) onGattSearchComplete(connID gattc.ConnID, status gattc.Status) {
	if connID != c.connID || !c.gattPhaseActive(c.connPeer) {
		logger.Warn("disc", "stale gatt search completion for conn 0x%04X, ignoring", uint16(connID))
		return
	}
	c.gattDiscComplete(connID, status)
}

func (c *Coordinator) onGattClosed(connID gattc.ConnID, peer bt.Address) {
	if connID != c.connID {
		return
	}
	c.connID = gattc.InvalidConnID
	// connPeer may already refer to a newer pending open.
	if !c.gattOpenPending {
		c.connPeer = bt.EmptyAddress
	}
	if c.pendingClose == peer {
		c.closeAlarm.Cancel()
		c.pendingClose = bt.EmptyAddress
	}

	// ATT link dropped before the search finished.
	if c.gattPhaseActive(peer) {
		logger.Warn("disc", "gatt conn to %s dropped mid-discovery (conn_id=0x%04X)", peer, uint16(gattc.InvalidConnID))
		c.gattPhaseFailed()
	}
}

// gattPhaseActive reports whether the active session still has an LE
// phase outstanding for peer.
func (c *Coordinator) gattPhaseActive(peer bt.Address) bool {
	return c.state == stateActive &&
		c.outstanding.Has(bt.TransportLE) &&
		c.peers.SameDevice(peer, c.peer)
}

// gattDiscComplete finishes the LE phase: read back the attribute
// database, extract primary-service UUIDs in handle order, then park
// or close the connection before reporting.
func (c *Coordinator) gattDiscComplete(connID gattc.ConnID, status gattc.Status) {
	peer := c.connPeer

	var uuids []uuid.UUID
	phaseStatus := bt.StatusFailure
	if status == gattc.StatusSuccess {
		phaseStatus = bt.StatusSuccess
		for _, el := range c.gatt.GetGattDb(connID, 0x0000, 0xFFFF) {
			if el.Type == gattc.DbPrimaryService {
				uuids = append(uuids, el.UUID)
			}
		}
		c.hist.record("gatt disc complete for %s: %d services", peer, len(uuids))
	} else {
		c.hist.record("gatt disc failed for %s: %s", peer, status)
	}

	// Park the connection for the reuse window before reporting, so a
	// follow-up request dispatched from the completion path sees it.
	if c.cfg.GattCloseDelay > 0 {
		c.pendingClose = peer
		c.closeAlarm.Set(c.cfg.GattCloseDelay, func() {
			c.execute(closeTimeoutEvent{})
		})
	} else {
		// Drop the handle with the synchronous close, so the close
		// event cannot be mistaken for a later connection's drop.
		c.gatt.Close(c.clientIf, peer)
		c.connID = gattc.InvalidConnID
		c.connPeer = bt.EmptyAddress
	}

	c.execute(transportResultEvent{res: transportResult{
		transport: bt.TransportLE,
		status:    phaseStatus,
		gattUUIDs: uuids,
	}})
}

// gattPhaseFailed posts an LE failure completion for the active
// session.
func (c *Coordinator) gattPhaseFailed() {
	c.execute(transportResultEvent{res: transportResult{
		transport: bt.TransportLE,
		status:    bt.StatusFailure,
	}})
}

// GattRefresh drops the engine's cached attribute database for peer,
// forcing the next discovery to re-read it over the air. No-op until
// the client registration exists.
func (c *Coordinator) GattRefresh(peer bt.Address) {
	c.loop.Post(func() {
		if !c.gattRegistered {
			logger.Debug("disc", "gatt refresh for %s before client registration, ignoring", peer)
			return
		}
		c.hist.record("gatt refresh for %s", peer)
		c.gatt.Refresh(c.clientIf, peer)
	})
}

// cancelGattDiscovery aborts whatever LE work is in flight for peer
// without reporting; the caller posts the failure completion.
func (c *Coordinator) cancelGattDiscovery(peer bt.Address) {
	if c.gattOpenPending && c.connPeer == peer {
		c.gatt.CancelOpen(c.clientIf, peer, true)
		c.gattOpenPending = false
		c.connPeer = bt.EmptyAddress
		return
	}
	if c.connID != gattc.InvalidConnID && c.connPeer == peer {
		c.gatt.Close(c.clientIf, peer)
	}
}

// closeIdleGattConn handles the close-delay expiry: tear down the
// parked connection. Purely resource reclamation; outstanding
// transports are unaffected.
func (c *Coordinator) closeIdleGattConn() {
	if c.pendingClose.IsEmpty() || c.connID == gattc.InvalidConnID {
		return
	}
	c.hist.record("gatt close timeout, closing conn to %s", c.pendingClose)
	logger.Debug("disc", "close delay elapsed, closing gatt conn to %s", c.pendingClose)
	c.gatt.Close(c.clientIf, c.pendingClose)
	c.pendingClose = bt.EmptyAddress
}
