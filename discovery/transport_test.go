package discovery

import (
	"testing"

	"github.com/user/bluedisc/bt"
)

func TestResolveTransport(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	cases := []struct {
		name      string
		devType   bt.DeviceType
		addrType  bt.AddrType
		acl       bt.Transport
		requested bt.Transport
		want      bt.Transport
	}{
		{"explicit transport bypasses selection", bt.DeviceTypeLE, bt.AddrTypeRandom, 0, bt.TransportBrEdr, bt.TransportBrEdr},
		{"LE-only device goes LE", bt.DeviceTypeLE, bt.AddrTypePublic, 0, bt.TransportAuto, bt.TransportLE},
		{"random address goes LE", bt.DeviceTypeBrEdr, bt.AddrTypeRandom, 0, bt.TransportAuto, bt.TransportLE},
		{"dual-mode prefers BR/EDR ACL", bt.DeviceTypeDual, bt.AddrTypePublic, bt.TransportBrEdr | bt.TransportLE, bt.TransportAuto, bt.TransportBrEdr},
		{"dual-mode falls back to LE ACL", bt.DeviceTypeDual, bt.AddrTypePublic, bt.TransportLE, bt.TransportAuto, bt.TransportLE},
		{"dual-mode no ACL defaults BR/EDR", bt.DeviceTypeDual, bt.AddrTypePublic, 0, bt.TransportAuto, bt.TransportBrEdr},
		{"unknown device defaults BR/EDR", bt.DeviceTypeUnknown, bt.AddrTypePublic, 0, bt.TransportAuto, bt.TransportBrEdr},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h.peers.mu.Lock()
			h.peers.devType[peerA] = tc.devType
			h.peers.addrType[peerA] = tc.addrType
			h.peers.acl[peerA] = tc.acl
			h.peers.mu.Unlock()

			if got := h.c.resolveTransport(peerA, tc.requested); got != tc.want {
				t.Errorf("Expected %s, got %s", tc.want, got)
			}
		})
	}
}
