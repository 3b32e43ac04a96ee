package bt

// 16-bit service class and protocol UUIDs used by the well-known
// service table. Values are from the Bluetooth Assigned Numbers.
const (
	UUID16ProtocolRFCOMM = 0x0003
	UUID16ProtocolATT    = 0x0007
	UUID16ProtocolL2CAP  = 0x0100

	UUID16ServClassSerialPort          = 0x1101
	UUID16ServClassLanAccessUsingPPP   = 0x1102
	UUID16ServClassDialupNetworking    = 0x1103
	UUID16ServClassIrMCSync            = 0x1104
	UUID16ServClassObexObjectPush      = 0x1105
	UUID16ServClassObexFileTransfer    = 0x1106
	UUID16ServClassHeadset             = 0x1108
	UUID16ServClassCordlessTelephony   = 0x1109
	UUID16ServClassAudioSource         = 0x110A
	UUID16ServClassAudioSink           = 0x110B
	UUID16ServClassAVRemoteControl     = 0x110E
	UUID16ServClassIntercom            = 0x1110
	UUID16ServClassHeadsetAudioGateway = 0x1112
	UUID16ServClassPANU                = 0x1115
	UUID16ServClassNAP                 = 0x1116
	UUID16ServClassGN                  = 0x1117
	UUID16ServClassDirectPrinting      = 0x1118
	UUID16ServClassImagingResponder    = 0x111B
	UUID16ServClassHFHandsfree         = 0x111E
	UUID16ServClassAGHandsfree         = 0x111F
	UUID16ServClassHumanInterface      = 0x1124
	UUID16ServClassSAP                 = 0x112D
	UUID16ServClassPbapPCE             = 0x112E
	UUID16ServClassPbapPSE             = 0x112F
	UUID16ServClassMessageAccess       = 0x1132
	UUID16ServClassMessageNotification = 0x1133
	UUID16ServClassPnPInformation      = 0x1200
	UUID16ServClassVideoSink           = 0x1304
	UUID16ServClassHDP                 = 0x1400
)

// ServiceID indexes the fixed well-known service-class table searched
// during BR/EDR discovery. The order is load-bearing: SDP results are
// walked in exactly this order and the reserved slot doubles as the
// "user service" whose record carries only an RFCOMM channel number.
type ServiceID uint8

const (
	ServiceIDReserved ServiceID = iota // PnP/DeviceID, yields SCN only
	ServiceIDSerialPort
	ServiceIDDialupNetworking
	ServiceIDAudioSource
	ServiceIDLanAccess
	ServiceIDHeadset
	ServiceIDHFHandsfree
	ServiceIDObjectPush
	ServiceIDFileTransfer
	ServiceIDCordlessTelephony
	ServiceIDIntercom
	ServiceIDIrMCSync
	ServiceIDDirectPrinting
	ServiceIDImagingResponder
	ServiceIDPANU
	ServiceIDNAP
	ServiceIDGN
	ServiceIDSAP
	ServiceIDAudioSink
	ServiceIDAVRemoteControl
	ServiceIDHumanInterface
	ServiceIDVideoSink
	ServiceIDPbapPSE
	ServiceIDHeadsetAudioGateway
	ServiceIDAGHandsfree
	ServiceIDMessageAccess
	ServiceIDMessageNotification
	ServiceIDHDP
	ServiceIDPbapPCE
	ServiceIDGatt

	MaxServiceID = int(ServiceIDGatt) + 1
)

// ServiceMask is a bitmask over ServiceID values.
type ServiceMask uint32

const (
	// ReservedServiceMask is the bit of the reserved/user service slot.
	ReservedServiceMask ServiceMask = 1 << ServiceIDReserved
	// AllServiceMask has every well-known service-class bit set.
	AllServiceMask ServiceMask = 1<<MaxServiceID - 1
)

// Mask returns the ServiceMask bit for this service ID.
func (id ServiceID) Mask() ServiceMask {
	return 1 << id
}

// Has reports whether the mask contains the given service ID.
func (m ServiceMask) Has(id ServiceID) bool {
	return m&id.Mask() != 0
}

var serviceIDToUUID16 = [MaxServiceID]uint16{
	ServiceIDReserved:            UUID16ServClassPnPInformation,
	ServiceIDSerialPort:          UUID16ServClassSerialPort,
	ServiceIDDialupNetworking:    UUID16ServClassDialupNetworking,
	ServiceIDAudioSource:         UUID16ServClassAudioSource,
	ServiceIDLanAccess:           UUID16ServClassLanAccessUsingPPP,
	ServiceIDHeadset:             UUID16ServClassHeadset,
	ServiceIDHFHandsfree:         UUID16ServClassHFHandsfree,
	ServiceIDObjectPush:          UUID16ServClassObexObjectPush,
	ServiceIDFileTransfer:        UUID16ServClassObexFileTransfer,
	ServiceIDCordlessTelephony:   UUID16ServClassCordlessTelephony,
	ServiceIDIntercom:            UUID16ServClassIntercom,
	ServiceIDIrMCSync:            UUID16ServClassIrMCSync,
	ServiceIDDirectPrinting:      UUID16ServClassDirectPrinting,
	ServiceIDImagingResponder:    UUID16ServClassImagingResponder,
	ServiceIDPANU:                UUID16ServClassPANU,
	ServiceIDNAP:                 UUID16ServClassNAP,
	ServiceIDGN:                  UUID16ServClassGN,
	ServiceIDSAP:                 UUID16ServClassSAP,
	ServiceIDAudioSink:           UUID16ServClassAudioSink,
	ServiceIDAVRemoteControl:     UUID16ServClassAVRemoteControl,
	ServiceIDHumanInterface:      UUID16ServClassHumanInterface,
	ServiceIDVideoSink:           UUID16ServClassVideoSink,
	ServiceIDPbapPSE:             UUID16ServClassPbapPSE,
	ServiceIDHeadsetAudioGateway: UUID16ServClassHeadsetAudioGateway,
	ServiceIDAGHandsfree:         UUID16ServClassAGHandsfree,
	ServiceIDMessageAccess:       UUID16ServClassMessageAccess,
	ServiceIDMessageNotification: UUID16ServClassMessageNotification,
	ServiceIDHDP:                 UUID16ServClassHDP,
	ServiceIDPbapPCE:             UUID16ServClassPbapPCE,
	ServiceIDGatt:                UUID16ProtocolATT,
}

// UUID16 returns the 16-bit service class UUID for this service ID.
func (id ServiceID) UUID16() uint16 {
	return serviceIDToUUID16[id]
}

// ServiceIDForUUID16 returns the service ID whose class UUID is v.
func ServiceIDForUUID16(v uint16) (ServiceID, bool) {
	for id, u := range serviceIDToUUID16 {
		if u == v {
			return ServiceID(id), true
		}
	}
	return 0, false
}
