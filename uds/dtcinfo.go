package uds

import (
	"encoding/binary"

	"github.com/RobertSloan22/Simulated-OBD2-UDS/dtc"
)

const (
	statusTestFailed                       = 0x01
	statusTestFailedThisOperationCycle     = 0x02
	statusPendingDTC                       = 0x04
	statusConfirmedDTC                     = 0x08
	statusTestNotCompletedSinceLastClear   = 0x10
	statusTestFailedSinceLastClear         = 0x20
	statusTestNotCompletedThisOperationCycle = 0x40
	statusWarningIndicatorRequested        = 0x80
)

func dtcStatusByte(r dtc.Record) byte {
	var b byte
	switch r.State {
	case dtc.Pending:
		b |= statusTestFailed | statusTestFailedThisOperationCycle | statusPendingDTC
	case dtc.Confirmed, dtc.Permanent:
		b |= statusTestFailed | statusTestFailedThisOperationCycle | statusConfirmedDTC
		if r.MILIlluminate {
			b |= statusWarningIndicatorRequested
		}
	case dtc.History:
		b |= statusTestNotCompletedSinceLastClear
	}
	return b
}

// serviceReadDTCInformation implements service 0x19, spec §4.3.
func (s *Session) serviceReadDTCInformation(request []byte, mgr *dtc.Manager) []byte {
	if len(request) < 2 {
		return negative(0x19, NRCIncorrectMessageLength)
	}
	switch request[1] {
	case 0x01: // numberByStatusMask
		active := append(mgr.ListDTCs(dtc.Pending), mgr.ListDTCs(dtc.Confirmed)...)
		active = append(active, mgr.ListDTCs(dtc.Permanent)...)
		count := len(active)
		return []byte{0x59, 0x01, 0xFF, 0x00, byte(count >> 8), byte(count)}

	case 0x02: // byStatusMask
		if len(request) < 3 {
			return negative(0x19, NRCIncorrectMessageLength)
		}
		statusMask := request[2]
		active := append(mgr.ListDTCs(dtc.Pending), mgr.ListDTCs(dtc.Confirmed)...)
		active = append(active, mgr.ListDTCs(dtc.Permanent)...)
		out := []byte{0x59, 0x02, statusMask}
		for _, r := range active {
			b, err := r.Code.Bytes()
			if err != nil {
				continue
			}
			out = append(out, b[0], b[1], dtcStatusByte(r))
		}
		return out

	case 0x04: // byDTC, freeze-frame record
		if len(request) < 5 {
			return negative(0x19, NRCIncorrectMessageLength)
		}
		codeBytes := [2]byte{request[2], request[3]}
		code := dtc.DecodeBytes(codeBytes)
		freeze, ok := mgr.GetFreezeFrame(code)
		if !ok {
			return negative(0x19, NRCRequestOutOfRange)
		}
		rpm := uint16(freeze.RPM * 4)
		rpmBytes := make([]byte, 2)
		binary.BigEndian.PutUint16(rpmBytes, rpm)
		out := []byte{0x59, 0x04, codeBytes[0], codeBytes[1], 0x01, request[4]}
		return append(out, rpmBytes...)

	case 0x0A: // supportedDTCs
		out := []byte{0x59, 0x0A}
		for code, def := range dtc.DefaultCatalog {
			c, err := dtc.ParseCode(code)
			if err != nil {
				continue
			}
			b, err := c.Bytes()
			if err != nil {
				continue
			}
			status := byte(0)
			if def.MILIlluminate {
				status = statusWarningIndicatorRequested
			}
			out = append(out, b[0], b[1], status)
		}
		return out

	default:
		return negative(0x19, NRCSubFunctionNotSupported)
	}
}

// serviceClearDiagnosticInformation implements service 0x14: a three-byte
// group filter, 0xFFFFFF meaning "all groups". Permanent DTCs are
// unaffected, matching OBD Mode 04's scope but limited to this ECU.
func (s *Session) serviceClearDiagnosticInformation(request []byte, mgr *dtc.Manager) []byte {
	if len(request) < 4 {
		return negative(0x14, NRCIncorrectMessageLength)
	}
	group := uint32(request[1])<<16 | uint32(request[2])<<8 | uint32(request[3])
	if group == 0xFFFFFF {
		mgr.ClearDTCs()
	}
	return []byte{0x54}
}
