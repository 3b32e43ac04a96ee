package discovery

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/user/bluedisc/bt"
	"github.com/user/bluedisc/config"
	"github.com/user/bluedisc/gattc"
	"github.com/user/bluedisc/logger"
	"github.com/user/bluedisc/mainloop"
	"github.com/user/bluedisc/sdp"
)

type sessionState uint8

const (
	stateIdle sessionState = iota
	stateActive
)

func (s sessionState) String() string {
	if s == stateActive {
		return "ACTIVE"
	}
	return "IDLE"
}

// Config carries the coordinator tunables.
type Config struct {
	// GattCloseDelay is how long an idle ATT connection is kept open
	// after a discovery completes, so a follow-up request to the same
	// peer can reuse it. Zero closes synchronously on completion.
	GattCloseDelay time.Duration

	// QueueWarnDepth logs a warning when the pending queue grows past
	// this depth. The queue itself is unbounded.
	QueueWarnDepth int
}

// DefaultConfig returns the tunables the stack ships with.
func DefaultConfig() Config {
	return Config{
		GattCloseDelay: time.Second,
		QueueWarnDepth: 16,
	}
}

// mergeState accumulates per-transport contributions until every
// outstanding transport has reported.
type mergeState struct {
	services     bt.ServiceMask
	uuids        []uuid.UUID
	sdpGattUUIDs []uuid.UUID
	leUUIDs      []uuid.UUID
	scn          int
	scnFound     bool
	anySuccess   bool
	leRan        bool
	leSuccess    bool
}

// Coordinator is the discovery state machine. One instance serves the
// whole stack; exactly one peer's discovery is active at a time and
// requests for other peers queue FIFO behind it.
//
// All fields below the constructor-set dependencies are owned by the
// main loop goroutine and must only be touched from loop tasks.
type Coordinator struct {
	cfg       Config
	loop      *mainloop.Loop
	sdpEngine sdp.Engine
	gatt      gattc.Client
	peers     PeerRegistry
	gap       Gap
	store     *config.Store

	state       sessionState
	peer        bt.Address
	outstanding bt.Transport
	sinks       []Callbacks
	pending     []DiscoveryRequest
	merged      mergeState
	sdpState    *sdpSearchState

	gattRegistered  bool
	gattRegistering bool
	gattStartQueued bool
	clientIf        gattc.ClientIf
	connID          gattc.ConnID
	connPeer        bt.Address
	gattOpenPending bool
	pendingClose    bt.Address
	closeAlarm      *mainloop.Alarm

	hist history
}

// New wires a coordinator to its engines and collaborators. Call
// Start before issuing requests.
func New(cfg Config, sdpEngine sdp.Engine, gatt gattc.Client, peers PeerRegistry, gap Gap, store *config.Store) *Coordinator {
	c := &Coordinator{
		cfg:       cfg,
		loop:      mainloop.New("disc"),
		sdpEngine: sdpEngine,
		gatt:      gatt,
		peers:     peers,
		gap:       gap,
		store:     store,
		connID:    gattc.InvalidConnID,
	}
	c.closeAlarm = mainloop.NewAlarm(c.loop, "disc_gatt_close")
	return c
}

// Start launches the main loop. The coordinator comes up IDLE with an
// empty queue.
func (c *Coordinator) Start() {
	c.loop.Start()
	logger.Info("disc", "discovery coordinator started")
}

// Stop tears the coordinator down: pending requests are dropped, any
// open ATT connection is closed, and the loop exits. Completion
// callbacks for an in-flight discovery will not fire after Stop.
func (c *Coordinator) Stop() {
	c.loop.Sync(func() {
		c.closeAlarm.Cancel()
		if c.sdpState != nil {
			c.sdpEngine.CancelServiceSearch(c.sdpState.peer)
		}
		if c.connID != gattc.InvalidConnID {
			c.gatt.Close(c.clientIf, c.connPeer)
		}
		if c.gattOpenPending {
			c.gatt.CancelOpen(c.clientIf, c.connPeer, true)
		}
		dropped := len(c.pending)
		c.resetSession()
		c.pending = nil
		c.connID = gattc.InvalidConnID
		c.connPeer = bt.EmptyAddress
		c.gattOpenPending = false
		c.pendingClose = bt.EmptyAddress
		if dropped > 0 {
			logger.Warn("disc", "stopping with %d queued requests dropped", dropped)
		}
	})
	c.loop.Stop()
	logger.Info("disc", "discovery coordinator stopped")
}

// StartServiceDiscovery asks for a discovery of peer on the given
// transport (TransportAuto lets the coordinator choose). The result
// arrives asynchronously through cb; exactly one merged callback fires
// per request, eventually, success or failure.
func (c *Coordinator) StartServiceDiscovery(peer bt.Address, transport bt.Transport, cb Callbacks) {
	logger.Info("disc", "service discovery requested for %s on %s", peer, transport)
	c.loop.Post(func() {
		c.execute(apiDiscoverEvent{req: DiscoveryRequest{Peer: peer, Transport: transport, Cb: cb}})
	})
}

// RemoveDevice tells the coordinator a device record was deleted. An
// in-flight LE phase for that peer is forced to a failure completion;
// stored properties for the peer are dropped.
func (c *Coordinator) RemoveDevice(peer bt.Address) {
	c.loop.Post(func() {
		c.onDeviceRemoved(peer)
	})
}

// execute is the single state-transition function. Every event goes
// through here, on the loop goroutine only.
func (c *Coordinator) execute(ev event) {
	c.hist.record("[%s] %s", c.state, describe(ev))

	switch c.state {
	case stateIdle:
		switch e := ev.(type) {
		case apiDiscoverEvent:
			c.startSession(e.req)
		case closeTimeoutEvent:
			c.closeIdleGattConn()
		case sdpResultEvent, transportResultEvent:
			// Stale engine completion after a forced teardown.
			logger.Warn("disc", "ignoring %s in IDLE", ev.eventName())
		default:
			panic(fmt.Sprintf("disc: malformed event %T in state IDLE", ev))
		}

	case stateActive:
		switch e := ev.(type) {
		case apiDiscoverEvent:
			if c.peers.SameDevice(e.req.Peer, c.peer) {
				c.samePeerFastPath(e.req)
			} else {
				c.enqueue(e.req)
			}
		case sdpResultEvent:
			c.onSdpResult(e.status)
		case transportResultEvent:
			c.onTransportResult(e.res)
		case closeTimeoutEvent:
			c.closeIdleGattConn()
		default:
			panic(fmt.Sprintf("disc: malformed event %T in state ACTIVE", ev))
		}
	}
}

func (c *Coordinator) startSession(req DiscoveryRequest) {
	transport := c.resolveTransport(req.Peer, req.Transport)

	c.state = stateActive
	c.peer = req.Peer
	c.sinks = []Callbacks{req.Cb}
	c.outstanding = 0
	c.merged = mergeState{}

	logger.Info("disc", "discovery ACTIVE for %s on %s", req.Peer, transport)
	c.dispatch(transport)
}

// dispatch starts the driver for every transport bit not already
// outstanding.
func (c *Coordinator) dispatch(transport bt.Transport) {
	if transport.Has(bt.TransportBrEdr) && !c.outstanding.Has(bt.TransportBrEdr) {
		c.outstanding |= bt.TransportBrEdr
		if c.peers.HidSdpDisabled(c.peer) {
			// HID bonding already exchanged the profile data; a real
			// SDP probe would race pairing traffic on the same
			// channel. Synthesize an empty success, still gated.
			c.hist.record("sdp skipped for %s (HID SDP disabled)", c.peer)
			logger.Info("disc", "skipping SDP for %s, HID SDP disabled quirk", c.peer)
			c.loop.Post(func() {
				c.execute(transportResultEvent{res: transportResult{
					transport: bt.TransportBrEdr,
					status:    bt.StatusSuccess,
				}})
			})
		} else {
			c.startSdpDiscovery(c.peer)
		}
	}

	if transport.Has(bt.TransportLE) && !c.outstanding.Has(bt.TransportLE) {
		c.outstanding |= bt.TransportLE
		c.merged.leRan = true
		c.startGattDiscovery(c.peer)
	}
}

// samePeerFastPath services a request for the already-active peer
// without queuing: the caller is added as a result sink and any
// transport not yet outstanding gets a driver pass.
func (c *Coordinator) samePeerFastPath(req DiscoveryRequest) {
	if req.Cb != nil {
		c.sinks = append(c.sinks, req.Cb)
	}

	transport := c.resolveTransport(req.Peer, req.Transport)
	missing := transport &^ c.outstanding
	if missing == 0 {
		logger.Debug("disc", "fast path for %s: transports already outstanding", req.Peer)
		return
	}
	logger.Info("disc", "fast path for %s: adding transport %s", req.Peer, missing)
	c.dispatch(missing)
}

func (c *Coordinator) enqueue(req DiscoveryRequest) {
	c.pending = append(c.pending, req)
	logger.Debug("disc", "queued discovery for %s behind %s (depth %d)", req.Peer, c.peer, len(c.pending))
	if c.cfg.QueueWarnDepth > 0 && len(c.pending) >= c.cfg.QueueWarnDepth {
		logger.Warn("disc", "pending discovery queue depth %d", len(c.pending))
	}
}

func (c *Coordinator) onTransportResult(res transportResult) {
	if !c.outstanding.Has(res.transport) {
		logger.Warn("disc", "result for %s but transport not outstanding, ignoring", res.transport)
		return
	}

	switch res.transport {
	case bt.TransportBrEdr:
		c.merged.services |= res.services
		c.merged.uuids = append(c.merged.uuids, res.uuids...)
		c.merged.sdpGattUUIDs = append(c.merged.sdpGattUUIDs, res.gattUUIDs...)
		if res.scnFound {
			c.merged.scn = res.scn
			c.merged.scnFound = true
		}
		c.sdpState = nil
	case bt.TransportLE:
		c.merged.leUUIDs = append(c.merged.leUUIDs, res.gattUUIDs...)
		if res.status == bt.StatusSuccess {
			c.merged.leSuccess = true
		}
		// Any LE completion marks the peer LE-capable, so the
		// preferred-conn-params read fires on failure too.
		c.gap.ReadPeerPrefConnParams(c.peer)
	}
	if res.status == bt.StatusSuccess {
		c.merged.anySuccess = true
	}

	c.outstanding &^= res.transport
	logger.Debug("disc", "%s phase done for %s (status=%s), outstanding=%s",
		res.transport, c.peer, res.status, c.outstanding)
	if c.outstanding == 0 {
		c.finishSession()
	}
}

// finishSession fires the merged callbacks, returns to IDLE and
// dispatches the next queued request.
func (c *Coordinator) finishSession() {
	status := bt.StatusFailure
	if c.merged.anySuccess {
		status = bt.StatusSuccess
	}

	result := ServiceResult{
		Peer:     c.peer,
		Services: c.merged.services,
		UUIDs:    append(append([]uuid.UUID(nil), c.merged.uuids...), c.merged.leUUIDs...),
		Status:   status,
		Scn:      c.merged.scn,
		ScnFound: c.merged.scnFound,
	}
	name := c.peers.ReadRemoteName(c.peer)

	c.hist.record("complete for %s status=%s services=%08x uuids=%d",
		c.peer, status, uint32(result.Services), len(result.UUIDs))
	logger.Info("disc", "discovery complete for %s: status=%s, %d uuids", c.peer, status, len(result.UUIDs))
	logger.DebugJSON("disc", "merged result", result)

	sinks := c.sinks
	merged := c.merged
	peer := c.peer
	c.resetSession()

	for _, sink := range sinks {
		if len(merged.sdpGattUUIDs) > 0 {
			sink.OnGattResults(peer, name, merged.sdpGattUUIDs, false)
		}
		if merged.leRan && merged.leSuccess {
			sink.OnGattResults(peer, name, merged.leUUIDs, true)
		}
		sink.OnServiceDiscoveryResults(result)
	}

	if len(c.pending) > 0 {
		next := c.pending[0]
		c.pending = c.pending[1:]
		logger.Debug("disc", "dequeuing discovery for %s (%d remain)", next.Peer, len(c.pending))
		c.startSession(next)
	}
}

func (c *Coordinator) resetSession() {
	c.state = stateIdle
	c.peer = bt.EmptyAddress
	c.outstanding = 0
	c.sinks = nil
	c.merged = mergeState{}
	c.sdpState = nil
}

func (c *Coordinator) onDeviceRemoved(peer bt.Address) {
	if c.store != nil {
		if err := c.store.RemoveSection(peer.String()); err != nil {
			logger.Warn("disc", "failed to drop stored properties for %s: %v", peer, err)
		}
	}

	if c.state != stateActive || !c.peers.SameDevice(peer, c.peer) {
		return
	}
	if !c.outstanding.Has(bt.TransportLE) {
		return
	}

	// Force the LE phase down; the merged callback still fires.
	logger.Warn("disc", "device %s removed mid-discovery, failing LE phase", peer)
	c.hist.record("device removed mid-discovery: %s", peer)
	c.cancelGattDiscovery(peer)
	c.execute(transportResultEvent{res: transportResult{
		transport: bt.TransportLE,
		status:    bt.StatusFailure,
	}})
}

// Dumpsys writes the coordinator state and recent transition history.
func (c *Coordinator) Dumpsys(w io.Writer) {
	ok := c.loop.Sync(func() {
		fmt.Fprintf(w, "Discovery coordinator:\n")
		fmt.Fprintf(w, "  state: %s\n", c.state)
		if c.state == stateActive {
			fmt.Fprintf(w, "  peer: %s outstanding: %s sinks: %d\n", c.peer, c.outstanding, len(c.sinks))
		}
		fmt.Fprintf(w, "  pending queue: %d\n", len(c.pending))
		fmt.Fprintf(w, "  gatt: registered=%v client_if=%d conn_id=0x%04X conn_peer=%s pending_close=%s\n",
			c.gattRegistered, c.clientIf, uint16(c.connID), c.connPeer, c.pendingClose)
		fmt.Fprintf(w, "  history:\n")
		c.hist.dump(w)
	})
	if !ok {
		fmt.Fprintf(w, "Discovery coordinator: stopped\n")
	}
}
