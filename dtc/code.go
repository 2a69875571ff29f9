// Package dtc implements the per-ECU diagnostic-trouble-code state machine:
// pending/confirmed/permanent (and an internal history) lifecycle, freeze
// frames, occurrence counting, and MIL contribution.
package dtc

import (
	"fmt"
	"strconv"
	"strings"
)

// Code is a canonical 3-byte-form DTC such as "P0420": a one-letter
// category prefix (P powertrain, C chassis, B body, U network) followed by
// four hex digits, the first restricted to 0-3 per the OBD-II standard.
type Code struct {
	Raw string
}

func ParseCode(raw string) (Code, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if len(raw) != 5 {
		return Code{}, fmt.Errorf("dtc: code must be 5 characters, got %q", raw)
	}
	c := Code{Raw: raw}
	if _, err := c.Bytes(); err != nil {
		return Code{}, err
	}
	return c, nil
}

func (c Code) String() string { return c.Raw }

func (c Code) category() (byte, error) {
	switch c.Raw[0] {
	case 'P':
		return 0, nil
	case 'C':
		return 1, nil
	case 'B':
		return 2, nil
	case 'U':
		return 3, nil
	default:
		return 0, fmt.Errorf("dtc: unknown category prefix %q", c.Raw[0])
	}
}

func nibble(ch byte, raw string) (byte, error) {
	v, err := strconv.ParseUint(string(ch), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("dtc: invalid digit %q in code %q", ch, raw)
	}
	return byte(v), nil
}

// Bytes encodes the code per the OBD-II two-byte packing spec §4.2 and
// §3 describe: category in bits 7-6, first digit (0-3) in bits 5-4, second
// digit in bits 3-0 of the first byte; third and fourth digits in the
// second byte's high and low nibbles.
func (c Code) Bytes() ([2]byte, error) {
	cat, err := c.category()
	if err != nil {
		return [2]byte{}, err
	}
	d1, err := nibble(c.Raw[1], c.Raw)
	if err != nil {
		return [2]byte{}, err
	}
	if d1 > 3 {
		return [2]byte{}, fmt.Errorf("dtc: first digit of %q must be 0-3", c.Raw)
	}
	d2, err := nibble(c.Raw[2], c.Raw)
	if err != nil {
		return [2]byte{}, err
	}
	d3, err := nibble(c.Raw[3], c.Raw)
	if err != nil {
		return [2]byte{}, err
	}
	d4, err := nibble(c.Raw[4], c.Raw)
	if err != nil {
		return [2]byte{}, err
	}
	return [2]byte{(cat << 6) | (d1 << 4) | d2, (d3 << 4) | d4}, nil
}

// DecodeBytes is the inverse of Bytes, used when the UDS/OBD layer receives
// a DTC identifier instead of producing one (e.g. 0x19 0x04 byDTC lookups).
func DecodeBytes(b [2]byte) Code {
	letters := [4]byte{'P', 'C', 'B', 'U'}
	hexDigits := "0123456789ABCDEF"
	cat := b[0] >> 6
	d1 := (b[0] >> 4) & 0x3
	d2 := b[0] & 0x0F
	d3 := b[1] >> 4
	d4 := b[1] & 0x0F
	return Code{Raw: fmt.Sprintf("%c%c%c%c%c", letters[cat], hexDigits[d1], hexDigits[d2], hexDigits[d3], hexDigits[d4])}
}
