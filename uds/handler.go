package uds

import (
	"github.com/RobertSloan22/Simulated-OBD2-UDS/dtc"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/vehicle"
)

// Handler bundles one ECU's UDS-facing state: the session/security
// machine, its data-identifier table, routine registry, and firmware
// transfer state machine.
type Handler struct {
	Session  *Session
	DIDs     *DIDStore
	Routines *RoutineRegistry
	Transfer *Transfer
}

func NewHandler(dids *DIDStore) *Handler {
	return &Handler{
		Session:  NewSession(),
		DIDs:     dids,
		Routines: NewRoutineRegistry(),
		Transfer: NewTransfer(),
	}
}

// Process dispatches a UDS request (spec §4.3) against sim and mgr.
func (h *Handler) Process(request []byte, sim *vehicle.Simulator, mgr *dtc.Manager) []byte {
	if len(request) < 1 {
		return nil
	}
	service := request[0]

	if service != 0x3E {
		h.Session.expireIfStale()
	}
	h.Session.touch()

	switch service {
	case 0x10:
		return h.Session.serviceDiagnosticSessionControl(request)
	case 0x11:
		return h.Session.serviceEcuReset(request)
	case 0x14:
		resp := h.Session.serviceClearDiagnosticInformation(request, mgr)
		if len(resp) > 0 && resp[0] == 0x54 {
			sim.ResetReadiness()
		}
		return resp
	case 0x19:
		return h.Session.serviceReadDTCInformation(request, mgr)
	case 0x22:
		return h.Session.serviceReadDataByIdentifier(request, h.DIDs, sim.Snapshot())
	case 0x27:
		return h.Session.serviceSecurityAccess(request)
	case 0x28:
		return h.Session.serviceCommunicationControl(request)
	case 0x2E:
		return h.Session.serviceWriteDataByIdentifier(request, h.DIDs)
	case 0x2F:
		return h.Session.serviceIOControl(request, sim)
	case 0x31:
		return h.Session.serviceRoutineControl(request, h.Routines)
	case 0x34:
		return h.Session.serviceRequestDownload(request, h.Transfer)
	case 0x36:
		return h.Session.serviceTransferData(request, h.Transfer)
	case 0x37:
		return h.Session.serviceRequestTransferExit(h.Transfer)
	case 0x3E:
		return h.Session.serviceTesterPresent(request)
	case 0x85:
		return h.Session.serviceControlDTCSetting(request)
	default:
		return negative(service, NRCServiceNotSupported)
	}
}
