package obd

import "github.com/RobertSloan22/Simulated-OBD2-UDS/dtc"

// mode02 implements Mode 02 (freeze frame), spec §4.2: request is
// `0x02 PID FF#`; the response mirrors Mode 01's encoding for that PID but
// reads it from the stored freeze frame of a CONFIRMED DTC rather than the
// live snapshot. With several CONFIRMED DTCs, which one's freeze frame is
// used is not defined (ListDTCs returns no fixed order). Only frame number
// 0 exists, per spec's single
// freeze-frame-per-code design.
func (h *Handler) mode02(request []byte, mgr *dtc.Manager) []byte {
	if len(request) < 3 {
		return negative(0x02, nrcSubFunctionNotSupported)
	}
	pid := request[1]
	frameNum := request[2]
	if frameNum != 0 {
		return negative(0x02, nrcSubFunctionNotSupported)
	}

	confirmed := mgr.ListDTCs(dtc.Confirmed)
	if len(confirmed) == 0 {
		return negative(0x02, nrcSubFunctionNotSupported)
	}
	freeze := confirmed[0].Freeze
	if freeze == nil {
		return negative(0x02, nrcSubFunctionNotSupported)
	}

	block, ok := encodePID01(pid, *freeze, mgr)
	if !ok {
		return negative(0x02, nrcSubFunctionNotSupported)
	}
	return append([]byte{0x42, block[0], frameNum}, block[1:]...)
}
