package obd

import (
	"github.com/RobertSloan22/Simulated-OBD2-UDS/dtc"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/vehicle"
)

// mode01 implements Mode 01 (current data), spec §4.2. Up to six PIDs may
// be batched in one request; each produces its own response block.
func (h *Handler) mode01(request []byte, snap vehicle.Snapshot, mgr *dtc.Manager) []byte {
	if len(request) < 2 {
		return negative(0x01, nrcSubFunctionNotSupported)
	}
	out := []byte{}
	for _, pid := range request[1:] {
		block, ok := encodePID01(pid, snap, mgr)
		if !ok {
			if len(out) == 0 {
				return negative(0x01, nrcSubFunctionNotSupported)
			}
			continue
		}
		out = append(out, block...)
	}
	if len(out) == 0 {
		return negative(0x01, nrcSubFunctionNotSupported)
	}
	return append([]byte{0x41}, out...)
}

func be16(v int) (byte, byte) {
	if v < 0 {
		v = 0
	}
	if v > 0xFFFF {
		v = 0xFFFF
	}
	return byte(v >> 8), byte(v)
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// monitorStatusBytes packs the readiness-monitor bitmaps for PID 0x01
// (spec §4.2: "monitor supported/complete bitmaps in bytes 2-4 mapping per
// standard"). Bit set in the "supported" high nibble and clear in the
// low-nibble "complete" half means the test is supported but incomplete.
func monitorStatusBytes(snap vehicle.Snapshot) (byteB, byteC, byteD byte) {
	incomplete := func(m vehicle.Monitor) bool { return snap.Monitors[m] == vehicle.SupportedIncomplete }

	byteB = 0x07
	if !incomplete(vehicle.MonitorMisfire) {
		byteB &^= 0x01
	}
	if !incomplete(vehicle.MonitorFuelSystem) {
		byteB &^= 0x02
	}
	if !incomplete(vehicle.MonitorComponents) {
		byteB &^= 0x04
	}

	byteC = 0x0F
	if !incomplete(vehicle.MonitorCatalyst) {
		byteC &^= 0x01
	}
	if !incomplete(vehicle.MonitorHeatedCatalyst) {
		byteC &^= 0x02
	}
	if !incomplete(vehicle.MonitorEvap) {
		byteC &^= 0x04
	}
	if !incomplete(vehicle.MonitorSecondaryAir) {
		byteC &^= 0x08
	}

	byteD = 0x07
	if !incomplete(vehicle.MonitorO2Sensor) {
		byteD &^= 0x01
	}
	if !incomplete(vehicle.MonitorO2Heater) {
		byteD &^= 0x02
	}
	if !incomplete(vehicle.MonitorEGR) {
		byteD &^= 0x04
	}
	return
}

func encodePID01(pid byte, snap vehicle.Snapshot, mgr *dtc.Manager) ([]byte, bool) {
	switch pid {
	case 0x00:
		// Bitmap bit N set means PID (0x01+N) is supported below; must agree
		// with the cases actually present in this switch.
		return []byte{0x00, 0xBE, 0x3F, 0x80, 0x13}, true
	case 0x01:
		confirmed := len(mgr.ListDTCs(dtc.Confirmed)) + len(mgr.ListDTCs(dtc.Permanent))
		if confirmed > 127 {
			confirmed = 127
		}
		byteA := byte(confirmed)
		if snap.MIL {
			byteA |= 0x80
		}
		byteB, byteC, byteD := monitorStatusBytes(snap)
		return []byte{0x01, byteA, byteB, byteC, byteD}, true
	case 0x03:
		return []byte{0x03, 0x02, 0x00}, true
	case 0x04:
		return []byte{0x04, clampByte(int(snap.EngineLoad * 255 / 100))}, true
	case 0x05:
		return []byte{0x05, clampByte(int(snap.CoolantTempC) + 40)}, true
	case 0x06:
		return []byte{0x06, clampByte(int((snap.ShortTermFuelTrimPct + 100) * 128 / 100))}, true
	case 0x07:
		return []byte{0x07, clampByte(int((snap.LongTermFuelTrimPct + 100) * 128 / 100))}, true
	case 0x0B:
		return []byte{0x0B, clampByte(int(30 + snap.EngineLoad*0.7))}, true
	case 0x0C:
		hi, lo := be16(int(snap.RPM * 4))
		return []byte{0x0C, hi, lo}, true
	case 0x0D:
		return []byte{0x0D, clampByte(int(snap.SpeedKPH))}, true
	case 0x0E:
		return []byte{0x0E, clampByte(int((snap.TimingAdvanceDeg + 64) * 2))}, true
	case 0x0F:
		return []byte{0x0F, clampByte(int(snap.IntakeTempC) + 40)}, true
	case 0x10:
		hi, lo := be16(int(snap.MAF * 100))
		return []byte{0x10, hi, lo}, true
	case 0x11:
		return []byte{0x11, clampByte(int(snap.ThrottlePct * 255 / 100))}, true
	case 0x1C:
		return []byte{0x1C, 0x07}, true
	case 0x1F:
		hi, lo := be16(int(snap.RuntimeS))
		return []byte{0x1F, hi, lo}, true
	case 0x20:
		return []byte{0x20, 0x80, 0x02, 0x00, 0x01}, true
	case 0x21:
		hi, lo := be16(int(snap.DistanceMILOn))
		return []byte{0x21, hi, lo}, true
	case 0x2F:
		return []byte{0x2F, clampByte(int(snap.FuelLevelPct * 255 / 100))}, true
	case 0x40:
		return []byte{0x40, 0x40, 0x00, 0x00, 0x00}, true
	case 0x42:
		hi, lo := be16(int(snap.BatteryVoltage * 1000))
		return []byte{0x42, hi, lo}, true
	default:
		return nil, false
	}
}
