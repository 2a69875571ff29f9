// Package ecu binds one ISO-TP session, one DTC manager, one UDS session,
// and the shared vehicle simulator to a single request/response address
// pair (spec §4.5). Each Actor is a cooperatively scheduled unit: the bus
// coordinator owns the set of Actors, each Actor exclusively owns its own
// session, DTC manager, and UDS state.
package ecu

// Type names the kind of control unit an Identity represents, matching
// original_source/lib/multi_ecu.py's ECUType enum.
type Type string

const (
	TypeEngine       Type = "engine"
	TypeTransmission Type = "transmission"
	TypeABS          Type = "abs"
	TypeBody         Type = "body"
)

// Identity is the tuple spec §3 calls out: logical name, request/response
// CAN IDs, and the DTC code prefix this ECU's codes are drawn from.
type Identity struct {
	Type Type
	Name string

	RequestID          uint16
	ResponseID         uint16
	FunctionalAddress  uint16

	SupportsOBD bool
	SupportsUDS bool

	DTCPrefix string

	VIN           string
	PartNumber    string
	SerialNumber  string
	SoftwareVer   string
	HardwareVer   string
	CalibrationID string
}

// Predefined identities, grounded on multi_ecu.py's ENGINE_ECU/
// TRANSMISSION_ECU/ABS_ECU constants — the bus package's default fleet.
var (
	EngineIdentity = Identity{
		Type: TypeEngine, Name: "engine",
		RequestID: 0x7E0, ResponseID: 0x7E8, FunctionalAddress: 0x7DF,
		SupportsOBD: true, SupportsUDS: true,
		DTCPrefix:    "P0",
		PartNumber:   "ENG-PN-100000",
		SerialNumber: "ENG-SN-123456", SoftwareVer: "ENG-SW-2.0.0", HardwareVer: "ENG-HW-1.0",
	}
	TransmissionIdentity = Identity{
		Type: TypeTransmission, Name: "transmission",
		RequestID: 0x7E1, ResponseID: 0x7E9, FunctionalAddress: 0x7DF,
		SupportsOBD: false, SupportsUDS: true,
		DTCPrefix:    "P07",
		PartNumber:   "TCM-PN-200000",
		SerialNumber: "TCM-SN-789012", SoftwareVer: "TCM-SW-1.5.0", HardwareVer: "TCM-HW-1.0",
	}
	ABSIdentity = Identity{
		Type: TypeABS, Name: "abs",
		RequestID: 0x7E2, ResponseID: 0x7EA, FunctionalAddress: 0x7DF,
		SupportsOBD: false, SupportsUDS: true,
		DTCPrefix:    "C0",
		PartNumber:   "ABS-PN-300000",
		SerialNumber: "ABS-SN-345678", SoftwareVer: "ABS-SW-3.0.0", HardwareVer: "ABS-HW-2.0",
	}
)
