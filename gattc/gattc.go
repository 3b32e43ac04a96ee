// Package gattc defines the GATT client engine boundary used for LE
// service discovery. The discovery core registers one client at first
// use, opens direct connections and reads the attribute database after
// a service search completes.
package gattc

import (
	"github.com/google/uuid"

	"github.com/user/bluedisc/bt"
)

// ClientIf identifies a registered GATT client.
type ClientIf uint8

// ConnID identifies an open GATT connection.
type ConnID uint16

// InvalidConnID marks "no connection". Callbacks may report it when a
// connection dropped before a handle was assigned.
const InvalidConnID ConnID = 0xFFFF

// Status is a GATT operation status.
type Status uint8

const (
	StatusSuccess Status = 0
	StatusError   Status = 1
)

func (s Status) String() string {
	if s == StatusSuccess {
		return "SUCCESS"
	}
	return "ERROR"
}

// DbElementType tags one element of the attribute database.
type DbElementType uint8

const (
	DbPrimaryService DbElementType = iota
	DbSecondaryService
	DbIncludedService
	DbCharacteristic
	DbDescriptor
)

// DbElement is one row of the peer's attribute database, in handle
// order as the stack stores it.
type DbElement struct {
	Type            DbElementType
	UUID            uuid.UUID
	AttributeHandle uint16
	StartHandle     uint16
	EndHandle       uint16
	Properties      uint8
}

// Callbacks receives engine events. They may arrive on any goroutine;
// the discovery core re-posts them onto the main loop.
type Callbacks interface {
	// OnRegistered reports the outcome of Register.
	OnRegistered(status Status, clientIf ClientIf)

	// OnOpen reports a connection attempt finishing, success or not.
	OnOpen(status Status, connID ConnID, clientIf ClientIf, peer bt.Address)

	// OnSearchComplete reports a service search finishing.
	OnSearchComplete(connID ConnID, status Status)

	// OnClosed reports a connection closing, locally or by the peer.
	OnClosed(status Status, connID ConnID, clientIf ClientIf, peer bt.Address)
}

// Client is the GATT client engine.
type Client interface {
	// Register allocates a client interface; completion arrives via
	// OnRegistered.
	Register(cb Callbacks) error

	// Open starts a connection to peer. direct requests a direct
	// (non-background) connection; opportunistic piggybacks on an
	// existing link without holding it open.
	Open(clientIf ClientIf, peer bt.Address, transport bt.Transport, direct, opportunistic bool)

	// CancelOpen aborts a pending Open. isDirect must match the Open.
	CancelOpen(clientIf ClientIf, peer bt.Address, isDirect bool)

	// Close disconnects the connection to peer.
	Close(clientIf ClientIf, peer bt.Address)

	// ServiceSearchRequest starts an unfiltered primary service
	// search; completion arrives via OnSearchComplete.
	ServiceSearchRequest(connID ConnID)

	// GetGattDb returns the cached attribute database rows between
	// the two handles, inclusive.
	GetGattDb(connID ConnID, startHandle, endHandle uint16) []DbElement

	// Refresh drops the cached attribute database for peer.
	Refresh(clientIf ClientIf, peer bt.Address)
}
