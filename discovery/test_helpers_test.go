package discovery

import (
	"sync"

	"github.com/google/uuid"

	"github.com/user/bluedisc/bt"
	"github.com/user/bluedisc/gattc"
	"github.com/user/bluedisc/sdp"
)

// fakePeers is an in-memory device-record registry.
type fakePeers struct {
	mu       sync.Mutex
	devType  map[bt.Address]bt.DeviceType
	addrType map[bt.Address]bt.AddrType
	acl      map[bt.Address]bt.Transport
	hidQuirk map[bt.Address]bool
	names    map[bt.Address]string
}

func newFakePeers() *fakePeers {
	return &fakePeers{
		devType:  make(map[bt.Address]bt.DeviceType),
		addrType: make(map[bt.Address]bt.AddrType),
		acl:      make(map[bt.Address]bt.Transport),
		hidQuirk: make(map[bt.Address]bool),
		names:    make(map[bt.Address]string),
	}
}

func (f *fakePeers) ReadDevInfo(peer bt.Address) (bt.DeviceType, bt.AddrType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.devType[peer], f.addrType[peer]
}

func (f *fakePeers) IsAclUp(peer bt.Address, transport bt.Transport) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acl[peer].Has(transport)
}

func (f *fakePeers) SameDevice(a, b bt.Address) bool { return a == b }

func (f *fakePeers) HidSdpDisabled(peer bt.Address) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hidQuirk[peer]
}

func (f *fakePeers) ReadRemoteName(peer bt.Address) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.names[peer]
}

// fakeGap records preferred-connection-parameter reads.
type fakeGap struct {
	mu    sync.Mutex
	reads []bt.Address
}

func (f *fakeGap) ReadPeerPrefConnParams(peer bt.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, peer)
}

func (f *fakeGap) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reads)
}

// fakeSdp answers searches from canned records: the PnP filter round
// gets pnpRecords, the broad L2CAP round gets broadRecords. With
// deferCompletion set, callbacks are held until release is called.
type fakeSdp struct {
	mu           sync.Mutex
	pnpRecords   []*sdp.Record
	broadRecords []*sdp.Record
	failConn     bool

	deferCompletion bool
	pendingCb       sdp.ResultFn
	pendingPeer     bt.Address
	pendingStatus   sdp.Status

	filters []uuid.UUID
}

func (f *fakeSdp) ServiceSearchAttributeRequest(peer bt.Address, db *sdp.DiscoveryDB, cb sdp.ResultFn) error {
	f.mu.Lock()
	f.filters = append(f.filters, db.Filter[0])

	status := sdp.Success
	if f.failConn {
		status = sdp.ConnFailed
	} else {
		filter16, _ := bt.UuidAs16Bit(db.Filter[0])
		if filter16 == bt.UUID16ServClassPnPInformation {
			db.Records = f.pnpRecords
		} else {
			db.Records = f.broadRecords
		}
		if len(db.Records) == 0 {
			status = sdp.NoRecsMatch
		}
	}

	if f.deferCompletion {
		f.pendingCb = cb
		f.pendingPeer = peer
		f.pendingStatus = status
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()
	cb(peer, status)
	return nil
}

func (f *fakeSdp) CancelServiceSearch(peer bt.Address) {}

// release fires the held callback for a deferred round.
func (f *fakeSdp) release() {
	f.mu.Lock()
	cb := f.pendingCb
	peer := f.pendingPeer
	status := f.pendingStatus
	f.pendingCb = nil
	f.mu.Unlock()
	if cb != nil {
		cb(peer, status)
	}
}

func (f *fakeSdp) hasPending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pendingCb != nil
}

func (f *fakeSdp) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.filters)
}

// fakeGatt is a scripted GATT client engine. Callbacks fire inline
// from the engine call unless deferOpen holds the open.
type fakeGatt struct {
	mu           sync.Mutex
	cb           gattc.Callbacks
	db           []gattc.DbElement
	openStatus   gattc.Status
	dropOnSearch bool
	deferOpen    bool

	registered bool
	connSeq    gattc.ConnID
	connPeers  map[gattc.ConnID]bt.Address
	heldPeer   bt.Address
	heldOpen   bool

	holdClose  bool
	heldCloses []heldClose

	opens     int
	searches  int
	closes    []bt.Address
	cancels   []bt.Address
	refreshes []bt.Address
}

type heldClose struct {
	conn     gattc.ConnID
	clientIf gattc.ClientIf
	peer     bt.Address
}

func newFakeGatt() *fakeGatt {
	return &fakeGatt{connPeers: make(map[gattc.ConnID]bt.Address)}
}

func (f *fakeGatt) Register(cb gattc.Callbacks) error {
	f.mu.Lock()
	f.cb = cb
	f.registered = true
	f.mu.Unlock()
	cb.OnRegistered(gattc.StatusSuccess, 3)
	return nil
}

func (f *fakeGatt) Open(clientIf gattc.ClientIf, peer bt.Address, transport bt.Transport, direct, opportunistic bool) {
	f.mu.Lock()
	f.opens++
	if f.deferOpen {
		f.heldPeer = peer
		f.heldOpen = true
		f.mu.Unlock()
		return
	}
	if status := f.openStatus; status != gattc.StatusSuccess {
		cb := f.cb
		f.mu.Unlock()
		cb.OnOpen(status, gattc.InvalidConnID, clientIf, peer)
		return
	}
	f.connSeq++
	conn := f.connSeq
	f.connPeers[conn] = peer
	cb := f.cb
	f.mu.Unlock()
	cb.OnOpen(gattc.StatusSuccess, conn, clientIf, peer)
}

func (f *fakeGatt) CancelOpen(clientIf gattc.ClientIf, peer bt.Address, isDirect bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, peer)
	f.heldOpen = false
}

func (f *fakeGatt) Close(clientIf gattc.ClientIf, peer bt.Address) {
	f.mu.Lock()
	f.closes = append(f.closes, peer)
	var conn gattc.ConnID = gattc.InvalidConnID
	for id, p := range f.connPeers {
		if p == peer {
			conn = id
		}
	}
	if conn != gattc.InvalidConnID {
		delete(f.connPeers, conn)
	}
	if f.holdClose && conn != gattc.InvalidConnID {
		f.heldCloses = append(f.heldCloses, heldClose{conn: conn, clientIf: clientIf, peer: peer})
		f.mu.Unlock()
		return
	}
	cb := f.cb
	f.mu.Unlock()
	if cb != nil && conn != gattc.InvalidConnID {
		cb.OnClosed(gattc.StatusSuccess, conn, clientIf, peer)
	}
}

// releaseClosed delivers the close events held by holdClose.
func (f *fakeGatt) releaseClosed() {
	f.mu.Lock()
	held := f.heldCloses
	f.heldCloses = nil
	cb := f.cb
	f.mu.Unlock()
	for _, h := range held {
		cb.OnClosed(gattc.StatusSuccess, h.conn, h.clientIf, h.peer)
	}
}

func (f *fakeGatt) ServiceSearchRequest(connID gattc.ConnID) {
	f.mu.Lock()
	f.searches++
	peer := f.connPeers[connID]
	cb := f.cb
	drop := f.dropOnSearch
	if drop {
		delete(f.connPeers, connID)
	}
	f.mu.Unlock()

	if drop {
		cb.OnClosed(gattc.StatusError, connID, 3, peer)
		return
	}
	cb.OnSearchComplete(connID, gattc.StatusSuccess)
}

func (f *fakeGatt) GetGattDb(connID gattc.ConnID, startHandle, endHandle uint16) []gattc.DbElement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.db
}

func (f *fakeGatt) Refresh(clientIf gattc.ClientIf, peer bt.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, peer)
}

func (f *fakeGatt) refreshedPeers() []bt.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bt.Address(nil), f.refreshes...)
}

func (f *fakeGatt) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func (f *fakeGatt) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searches
}

func (f *fakeGatt) closedPeers() []bt.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bt.Address(nil), f.closes...)
}

func (f *fakeGatt) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cancels)
}

type gattResult struct {
	peer        bt.Address
	name        string
	services    []uuid.UUID
	transportLE bool
}

// resultRecorder collects callbacks and signals merged completions on
// a channel so tests can wait without polling.
type resultRecorder struct {
	mu      sync.Mutex
	results []ServiceResult
	gatt    []gattResult
	done    chan ServiceResult
}

func newResultRecorder() *resultRecorder {
	return &resultRecorder{done: make(chan ServiceResult, 16)}
}

func (r *resultRecorder) OnServiceDiscoveryResults(result ServiceResult) {
	r.mu.Lock()
	r.results = append(r.results, result)
	r.mu.Unlock()
	r.done <- result
}

func (r *resultRecorder) OnGattResults(peer bt.Address, name string, services []uuid.UUID, transportLE bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gatt = append(r.gatt, gattResult{peer: peer, name: name, services: services, transportLE: transportLE})
}

func (r *resultRecorder) resultCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func (r *resultRecorder) gattResults() []gattResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gattResult(nil), r.gatt...)
}
