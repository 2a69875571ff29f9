package obd

import (
	"github.com/RobertSloan22/Simulated-OBD2-UDS/dtc"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/vehicle"
)

// mode04 implements Mode 04 (clear DTCs), spec §4.2: clears all
// non-permanent DTCs, resets readiness monitors to INCOMPLETE. MIL state
// then follows naturally from the next tick's evaluation (no PERMANENT
// DTC with MILIlluminate remaining means it now reports off).
func (h *Handler) mode04(sim *vehicle.Simulator, mgr *dtc.Manager) []byte {
	mgr.ClearDTCs()
	sim.ResetReadiness()
	return []byte{0x44}
}

// mode06 is the On-Board Test Results service. Spec §4.2 allows stub
// payloads where the source material lacks real per-sensor test data;
// this returns one representative O2-sensor test result block.
func mode06() []byte {
	return []byte{0x46, 0x01, 0x01, 0x00, 0x0A, 0x00, 0xFF, 0x00, 0x45, 0x00, 0xFA}
}

// mode08 is Request Control of On-Board System; this stub acknowledges by
// echoing the requested test identifier.
func (h *Handler) mode08(request []byte) []byte {
	if len(request) < 2 {
		return negative(0x08, nrcSubFunctionNotSupported)
	}
	return []byte{0x48, request[1]}
}
