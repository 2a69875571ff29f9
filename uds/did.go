package uds

import (
	"encoding/binary"

	"github.com/RobertSloan22/Simulated-OBD2-UDS/vehicle"
)

// DIDStore is the per-ECU Data Identifier table (spec §4.3 0x22/0x2E):
// static identity/calibration DIDs plus a handful of manufacturer-reserved
// DIDs that read live values off the vehicle snapshot.
type DIDStore struct {
	static map[uint16][]byte
}

func NewDIDStore(vin, partNumber, serial, swVersion, hwVersion, ecuName string) *DIDStore {
	pad := func(s string, n int) []byte {
		b := []byte(s)
		if len(b) > n {
			b = b[:n]
		}
		out := make([]byte, n)
		copy(out, b)
		return out
	}
	return &DIDStore{static: map[uint16][]byte{
		0xF187: []byte(partNumber),
		0xF18A: []byte("SUPPLIER"),
		0xF18C: []byte(serial),
		0xF18E: []byte(swVersion),
		0xF190: pad(vin, 17),
		0xF191: []byte(hwVersion),
		0xF19E: []byte(ecuName),
	}}
}

// dynamicDIDs are computed from the live snapshot rather than stored
// statically: 0xF40C engine RPM and 0xF405 coolant temperature, both
// encoded the same way their OBD-II PID counterparts are.
func dynamicDID(did uint16, snap vehicle.Snapshot) ([]byte, bool) {
	switch did {
	case 0xF40C:
		v := uint16(snap.RPM * 4)
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, v)
		return b, true
	case 0xF405:
		return []byte{byte(int(snap.CoolantTempC) + 40)}, true
	default:
		return nil, false
	}
}

func (d *DIDStore) read(did uint16, snap vehicle.Snapshot) ([]byte, bool) {
	if v, ok := dynamicDID(did, snap); ok {
		return v, true
	}
	v, ok := d.static[did]
	return v, ok
}

func (d *DIDStore) write(did uint16, data []byte) bool {
	if _, dynamic := dynamicDID(did, vehicle.Snapshot{}); dynamic {
		return false
	}
	if _, ok := d.static[did]; !ok {
		return false
	}
	d.static[did] = append([]byte(nil), data...)
	return true
}

// serviceReadDataByIdentifier implements service 0x22: one or more
// 2-byte DIDs, each echoed back with its data.
func (s *Session) serviceReadDataByIdentifier(request []byte, dids *DIDStore, snap vehicle.Snapshot) []byte {
	if len(request) < 3 || (len(request)-1)%2 != 0 {
		return negative(0x22, NRCIncorrectMessageLength)
	}
	out := []byte{0x62}
	for i := 1; i < len(request); i += 2 {
		did := binary.BigEndian.Uint16(request[i : i+2])
		data, ok := dids.read(did, snap)
		if !ok {
			return negative(0x22, NRCRequestOutOfRange)
		}
		out = append(out, request[i], request[i+1])
		out = append(out, data...)
	}
	return out
}

// serviceWriteDataByIdentifier implements service 0x2E: requires an
// EXTENDED or PROGRAMMING session and an unlocked security level.
func (s *Session) serviceWriteDataByIdentifier(request []byte, dids *DIDStore) []byte {
	if len(request) < 4 {
		return negative(0x2E, NRCIncorrectMessageLength)
	}
	if s.current != SessionExtended && s.current != SessionProgramming {
		return negative(0x2E, NRCServiceNotSupportedInActiveSession)
	}
	if s.security == SecurityLocked {
		return negative(0x2E, NRCSecurityAccessDenied)
	}
	did := binary.BigEndian.Uint16(request[1:3])
	if !dids.write(did, request[3:]) {
		return negative(0x2E, NRCRequestOutOfRange)
	}
	return []byte{0x6E, request[1], request[2]}
}
