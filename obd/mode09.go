package obd

// mode09 implements Mode 09 (vehicle information), spec §4.2. PID 0x02
// (VIN) is 17 ASCII bytes preceded by a message-count byte; because the
// full response exceeds 7 bytes it necessarily traverses the ISO-TP
// multi-frame path once handed to the session.
func (h *Handler) mode09(request []byte) []byte {
	if len(request) < 2 {
		return negative(0x09, nrcSubFunctionNotSupported)
	}
	switch request[1] {
	case 0x00:
		return []byte{0x49, 0x00, 0x55}
	case 0x02:
		return append([]byte{0x49, 0x02, 0x01}, padASCII(h.Identity.VIN, 17)...)
	case 0x04:
		return append([]byte{0x49, 0x04, 0x01}, padASCII(h.Identity.CalibrationID, 16)...)
	case 0x06:
		return append([]byte{0x49, 0x06, 0x01},
			h.Identity.CVN[0], h.Identity.CVN[1], h.Identity.CVN[2], h.Identity.CVN[3])
	case 0x0A:
		return append([]byte{0x49, 0x0A, 0x01}, padASCII(h.Identity.ECUName, 20)...)
	default:
		return negative(0x09, nrcSubFunctionNotSupported)
	}
}

func padASCII(s string, n int) []byte {
	b := []byte(s)
	if len(b) > n {
		b = b[:n]
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}
