package uds

import (
	"github.com/RobertSloan22/Simulated-OBD2-UDS/vehicle"
)

const (
	ioReturnControlToECU  = 0x00
	ioResetToDefault      = 0x01
	ioFreezeCurrentState  = 0x02
	ioShortTermAdjustment = 0x03
)

// koeoActuatorDID is the one actuator DID this simulator models that
// demands Key-On-Engine-Off before it can be driven (spec §4.3).
const koeoActuatorDID = 0xF500

// serviceIOControl implements service 0x2F: requires an EXTENDED session,
// per the source material's session gate, and KOEO for the one actuator
// DID that demands it.
func (s *Session) serviceIOControl(request []byte, sim *vehicle.Simulator) []byte {
	if len(request) < 4 {
		return negative(0x2F, NRCIncorrectMessageLength)
	}
	if s.current != SessionExtended {
		return negative(0x2F, NRCServiceNotSupportedInActiveSession)
	}
	did := uint16(request[1])<<8 | uint16(request[2])
	opt := request[3]

	if did == koeoActuatorDID && opt != ioReturnControlToECU {
		snap := sim.Snapshot()
		koeo := snap.Ignition == vehicle.IgnitionOn && snap.Engine == vehicle.EngineOff
		if !koeo {
			return negative(0x2F, NRCConditionsNotCorrect)
		}
	}

	switch opt {
	case ioReturnControlToECU, ioResetToDefault, ioFreezeCurrentState:
		// no persistent actuator state modeled beyond the KOEO gate above.
	case ioShortTermAdjustment:
		if did == koeoActuatorDID && len(request) > 4 {
			pct := float64(request[4])
			sim.SetThrottle(pct * 100 / 255)
		}
	default:
		return negative(0x2F, NRCRequestOutOfRange)
	}

	return []byte{0x6F, request[1], request[2], opt}
}
