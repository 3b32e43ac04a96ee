package discovery

import (
	"github.com/user/bluedisc/bt"
	"github.com/user/bluedisc/logger"
)

// resolveTransport turns TransportAuto into a concrete transport for
// the peer. LE-only devices and random addresses go to LE; dual-mode
// devices prefer whichever transport already has an ACL up, BR/EDR
// checked first; everything else defaults to BR/EDR. Callers bypass
// this entirely by requesting an explicit transport.
func (c *Coordinator) resolveTransport(peer bt.Address, requested bt.Transport) bt.Transport {
	if requested != bt.TransportAuto {
		return requested
	}

	devType, addrType := c.peers.ReadDevInfo(peer)
	resolved := bt.TransportBrEdr
	switch {
	case devType == bt.DeviceTypeLE || addrType == bt.AddrTypeRandom:
		resolved = bt.TransportLE
	case devType == bt.DeviceTypeDual:
		if c.peers.IsAclUp(peer, bt.TransportBrEdr) {
			resolved = bt.TransportBrEdr
		} else if c.peers.IsAclUp(peer, bt.TransportLE) {
			resolved = bt.TransportLE
		}
	}

	logger.Debug("disc", "transport AUTO for %s -> %s (type=%s addr_type=%s)",
		peer, resolved, devType, addrType)
	return resolved
}
