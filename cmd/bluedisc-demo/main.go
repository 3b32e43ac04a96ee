// Command bluedisc-demo runs the discovery coordinator against
// simulated SDP and GATT engines, so the state machine can be watched
// end to end without a controller.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/user/bluedisc/bt"
	"github.com/user/bluedisc/config"
	"github.com/user/bluedisc/discovery"
	"github.com/user/bluedisc/gattc"
	"github.com/user/bluedisc/logger"
	"github.com/user/bluedisc/sdp"
)

func main() {
	app := &cli.App{
		Name:  "bluedisc-demo",
		Usage: "drive a simulated service discovery and print the merged result",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "peer",
				Value: "AA:BB:CC:DD:EE:01",
				Usage: "peer address to discover",
			},
			&cli.StringFlag{
				Name:  "transport",
				Value: "auto",
				Usage: "transport to probe: auto, bredr, le, both",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "DEBUG",
				Usage: "TRACE, DEBUG, INFO, WARN or ERROR",
			},
			&cli.DurationFlag{
				Name:  "close-delay",
				Value: time.Second,
				Usage: "GATT idle connection close delay (0 = close immediately)",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "path for the peer property store (default in-memory)",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	logger.SetLevel(logger.ParseLevel(ctx.String("log-level")))

	peer, err := bt.ParseAddress(ctx.String("peer"))
	if err != nil {
		return err
	}

	var transport bt.Transport
	switch ctx.String("transport") {
	case "auto":
		transport = bt.TransportAuto
	case "bredr":
		transport = bt.TransportBrEdr
	case "le":
		transport = bt.TransportLE
	case "both":
		transport = bt.TransportBrEdr | bt.TransportLE
	default:
		return fmt.Errorf("unknown transport %q", ctx.String("transport"))
	}

	cfg := discovery.DefaultConfig()
	cfg.GattCloseDelay = ctx.Duration("close-delay")

	store := config.NewStore(ctx.String("store"))
	coord := discovery.New(cfg, newSimSdp(peer), newSimGatt(), simPeers{}, simGap{}, store)
	coord.Start()
	defer coord.Stop()

	done := make(chan struct{})
	coord.StartServiceDiscovery(peer, transport, &printer{done: done})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		return fmt.Errorf("discovery did not complete")
	}

	fmt.Println()
	coord.Dumpsys(os.Stdout)
	return nil
}

// printer renders results to stdout.
type printer struct {
	done chan struct{}
}

func (p *printer) OnServiceDiscoveryResults(res discovery.ServiceResult) {
	fmt.Printf("merged result for %s: status=%s services=%08x\n",
		res.Peer, res.Status, uint32(res.Services))
	for _, u := range res.UUIDs {
		fmt.Printf("  uuid %s\n", u)
	}
	if res.ScnFound {
		fmt.Printf("  rfcomm scn %d (legacy status %d)\n", res.Scn, res.LegacyStatus())
	}
	close(p.done)
}

func (p *printer) OnGattResults(peer bt.Address, name string, services []uuid.UUID, transportLE bool) {
	src := "sdp"
	if transportLE {
		src = "le"
	}
	fmt.Printf("gatt services for %s (%q) via %s:\n", peer, name, src)
	for _, u := range services {
		fmt.Printf("  service %s\n", u)
	}
}

// simPeers answers for a dual-mode peer with no ACL up, so AUTO lands
// on BR/EDR.
type simPeers struct{}

func (simPeers) ReadDevInfo(peer bt.Address) (bt.DeviceType, bt.AddrType) {
	return bt.DeviceTypeDual, bt.AddrTypePublic
}
func (simPeers) IsAclUp(peer bt.Address, transport bt.Transport) bool { return false }
func (simPeers) SameDevice(a, b bt.Address) bool                      { return a == b }
func (simPeers) HidSdpDisabled(peer bt.Address) bool                  { return false }
func (simPeers) ReadRemoteName(peer bt.Address) string                { return "sim-device" }

type simGap struct{}

func (simGap) ReadPeerPrefConnParams(peer bt.Address) {
	logger.Debug("sim", "pref conn params read for %s", peer)
}

// simSdp answers with a canned A2DP + AVRCP device after a short
// delay, to exercise the asynchronous path.
type simSdp struct {
	peer bt.Address
}

func newSimSdp(peer bt.Address) *simSdp { return &simSdp{peer: peer} }

func (s *simSdp) ServiceSearchAttributeRequest(peer bt.Address, db *sdp.DiscoveryDB, cb sdp.ResultFn) error {
	filter16, _ := bt.UuidAs16Bit(db.Filter[0])
	go func() {
		time.Sleep(20 * time.Millisecond)
		if filter16 == bt.UUID16ServClassPnPInformation {
			db.Records = []*sdp.Record{{
				RemoteAddr:    peer,
				ServiceUUIDs:  []uuid.UUID{bt.UuidFrom16Bit(bt.UUID16ServClassPnPInformation)},
				RfcommChannel: 4,
			}}
		} else {
			db.Records = []*sdp.Record{
				{
					RemoteAddr:    peer,
					ServiceUUIDs:  []uuid.UUID{bt.UuidFrom16Bit(bt.UUID16ServClassAudioSource)},
					RfcommChannel: -1,
				},
				{
					RemoteAddr:      peer,
					ServiceUUIDs:    []uuid.UUID{bt.UuidFrom16Bit(bt.UUID16ServClassAVRemoteControl)},
					RfcommChannel:   -1,
					Attributes:      map[uint16][]byte{sdp.AttrIDSupportedFeatures: {0x00, 0x03}},
					ProfileVersions: map[uint16]uint16{bt.UUID16ServClassAVRemoteControl: 0x0106},
				},
			}
		}
		cb(peer, sdp.Success)
	}()
	return nil
}

func (s *simSdp) CancelServiceSearch(peer bt.Address) {}

// simGatt models a peer exposing GAP, GATT and Battery services.
type simGatt struct {
	cb   gattc.Callbacks
	conn gattc.ConnID
}

func newSimGatt() *simGatt { return &simGatt{} }

func (g *simGatt) Register(cb gattc.Callbacks) error {
	g.cb = cb
	go cb.OnRegistered(gattc.StatusSuccess, 1)
	return nil
}

func (g *simGatt) Open(clientIf gattc.ClientIf, peer bt.Address, transport bt.Transport, direct, opportunistic bool) {
	g.conn++
	conn := g.conn
	go func() {
		time.Sleep(20 * time.Millisecond)
		g.cb.OnOpen(gattc.StatusSuccess, conn, clientIf, peer)
	}()
}

func (g *simGatt) CancelOpen(clientIf gattc.ClientIf, peer bt.Address, isDirect bool) {}

func (g *simGatt) Close(clientIf gattc.ClientIf, peer bt.Address) {
	conn := g.conn
	go g.cb.OnClosed(gattc.StatusSuccess, conn, clientIf, peer)
}

func (g *simGatt) ServiceSearchRequest(connID gattc.ConnID) {
	go func() {
		time.Sleep(20 * time.Millisecond)
		g.cb.OnSearchComplete(connID, gattc.StatusSuccess)
	}()
}

func (g *simGatt) GetGattDb(connID gattc.ConnID, startHandle, endHandle uint16) []gattc.DbElement {
	return []gattc.DbElement{
		{Type: gattc.DbPrimaryService, UUID: bt.UuidFrom16Bit(0x1800), StartHandle: 0x0001, EndHandle: 0x000B},
		{Type: gattc.DbCharacteristic, UUID: bt.UuidFrom16Bit(0x2A00), AttributeHandle: 0x0003},
		{Type: gattc.DbPrimaryService, UUID: bt.UuidFrom16Bit(0x1801), StartHandle: 0x000C, EndHandle: 0x000F},
		{Type: gattc.DbPrimaryService, UUID: bt.UuidFrom16Bit(0x180F), StartHandle: 0x0010, EndHandle: 0x0016},
	}
}

func (g *simGatt) Refresh(clientIf gattc.ClientIf, peer bt.Address) {}
