package bt

// Transport selects which link-layer transport(s) a discovery runs on.
// It is a bitmask so that a single request can ask for both BR/EDR and
// LE; TransportAuto defers the choice to the transport selector.
type Transport uint8

const (
	TransportAuto  Transport = 0
	TransportBrEdr Transport = 1 << 0
	TransportLE    Transport = 1 << 1
)

// Has reports whether t includes the given transport bit.
func (t Transport) Has(bit Transport) bool {
	return t&bit != 0
}

func (t Transport) String() string {
	switch t {
	case TransportAuto:
		return "AUTO"
	case TransportBrEdr:
		return "BR_EDR"
	case TransportLE:
		return "LE"
	case TransportBrEdr | TransportLE:
		return "BR_EDR|LE"
	}
	return "UNKNOWN"
}

// DeviceType is the known type of a peer device record.
type DeviceType uint8

const (
	DeviceTypeUnknown DeviceType = iota
	DeviceTypeBrEdr              // classic only
	DeviceTypeLE                 // LE only
	DeviceTypeDual               // dual-mode (BR/EDR + LE)
)

func (d DeviceType) String() string {
	switch d {
	case DeviceTypeBrEdr:
		return "BR_EDR"
	case DeviceTypeLE:
		return "LE"
	case DeviceTypeDual:
		return "DUAL"
	}
	return "UNKNOWN"
}

// AddrType is the LE address type of a peer.
type AddrType uint8

const (
	AddrTypePublic AddrType = iota
	AddrTypeRandom
)

func (a AddrType) String() string {
	if a == AddrTypeRandom {
		return "RANDOM"
	}
	return "PUBLIC"
}

// Status is the coarse result status reported to upper layers.
type Status uint8

const (
	StatusSuccess Status = 0
	StatusFailure Status = 1
	StatusBusy    Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailure:
		return "FAILURE"
	case StatusBusy:
		return "BUSY"
	}
	return "UNKNOWN"
}
