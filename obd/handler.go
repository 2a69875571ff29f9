// Package obd implements the OBD-II service handlers (modes 0x01-0x0A),
// grounded on this project's source material's obd_services module. The
// Handler holds only the ECU's static identity; each request is answered
// from the vehicle.Simulator's snapshot and the ECU's dtc.Manager, and
// Mode 04 clears both the DTCs and the readiness monitors.
package obd

import (
	"github.com/RobertSloan22/Simulated-OBD2-UDS/dtc"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/vehicle"
)

// Identity is the static, profile-configured vehicle info Mode 09 serves.
type Identity struct {
	VIN            string
	CalibrationID  string
	ECUName        string
	CVN            [4]byte
}

// Handler dispatches OBD-II requests (spec §4.2) against one ECU's
// vehicle snapshot and DTC manager.
type Handler struct {
	Identity Identity
}

func NewHandler(identity Identity) *Handler {
	return &Handler{Identity: identity}
}

const (
	nrcServiceNotSupported    = 0x11
	nrcSubFunctionNotSupported = 0x12
)

func negative(mode byte, nrc byte) []byte {
	return []byte{0x7F, mode, nrc}
}

// Process dispatches request against sim/mgr, returning the response
// payload to hand to the ISO-TP session (which segments it if needed).
func (h *Handler) Process(request []byte, sim *vehicle.Simulator, mgr *dtc.Manager) []byte {
	if len(request) < 1 {
		return negative(0x01, nrcSubFunctionNotSupported)
	}
	mode := request[0]
	switch mode {
	case 0x01:
		return h.mode01(request, sim.Snapshot(), mgr)
	case 0x02:
		return h.mode02(request, mgr)
	case 0x03:
		return formatDTCList(0x43, mgr.ListDTCs(dtc.Confirmed))
	case 0x04:
		return h.mode04(sim, mgr)
	case 0x06:
		return mode06()
	case 0x07:
		return formatDTCList(0x47, mgr.ListDTCs(dtc.Pending))
	case 0x08:
		return h.mode08(request)
	case 0x09:
		return h.mode09(request)
	case 0x0A:
		return formatDTCList(0x4A, mgr.ListDTCs(dtc.Permanent))
	default:
		return negative(mode, nrcServiceNotSupported)
	}
}

func formatDTCList(positive byte, records []dtc.Record) []byte {
	if len(records) == 0 {
		return []byte{positive, 0x00}
	}
	out := []byte{positive, byte(len(records))}
	for _, r := range records {
		b, err := r.Code.Bytes()
		if err != nil {
			continue
		}
		out = append(out, b[0], b[1])
	}
	return out
}
