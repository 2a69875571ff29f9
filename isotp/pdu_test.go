package isotp

import (
	"bytes"
	"testing"
)

func TestParsePDU_SingleFrame(t *testing.T) {
	p, err := parsePDU([]byte{0x03, 0x22, 0xF1, 0x90, 0, 0, 0, 0})
	if err != nil {
		t.Fatalf("parsePDU: %v", err)
	}
	if p.kind != pciSingleFrame || p.length != 3 {
		t.Fatalf("got kind=%v length=%v", p.kind, p.length)
	}
	if !bytes.Equal(p.data, []byte{0x22, 0xF1, 0x90}) {
		t.Errorf("data = % 02X, want 22 F1 90", p.data)
	}
}

func TestParsePDU_SingleFrame_RejectsZeroLength(t *testing.T) {
	if _, err := parsePDU([]byte{0x00, 0, 0, 0, 0, 0, 0, 0}); err == nil {
		t.Fatal("expected error for single frame length 0")
	}
}

func TestParsePDU_SingleFrame_RejectsLengthExceedingPayload(t *testing.T) {
	if _, err := parsePDU([]byte{0x07, 0x22}); err == nil {
		t.Fatal("expected error when declared length exceeds available data")
	}
}

func TestParsePDU_FirstFrame(t *testing.T) {
	p, err := parsePDU([]byte{0x10, 0x14, 1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("parsePDU: %v", err)
	}
	if p.kind != pciFirstFrame || p.length != 0x14 {
		t.Fatalf("got kind=%v length=%v, want FF length=20", p.kind, p.length)
	}
	if !bytes.Equal(p.data, []byte{1, 2, 3, 4, 5, 6}) {
		t.Errorf("data = % 02X", p.data)
	}
}

func TestParsePDU_FirstFrame_RejectsOutOfRangeLength(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"declared length below single-frame minimum", []byte{0x10, 0x05, 1, 2, 3, 4, 5, 6}},
		{"too short to hold the length byte", []byte{0x10}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parsePDU(tc.data); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParsePDU_ConsecutiveFrame(t *testing.T) {
	p, err := parsePDU([]byte{0x23, 7, 8, 9, 10, 11, 12, 13})
	if err != nil {
		t.Fatalf("parsePDU: %v", err)
	}
	if p.kind != pciConsecutiveFrame || p.seqNum != 3 {
		t.Fatalf("got kind=%v seq=%v, want CF seq=3", p.kind, p.seqNum)
	}
}

func TestParsePDU_FlowControl(t *testing.T) {
	p, err := parsePDU([]byte{0x30, 8, 0x0A, 0, 0, 0, 0, 0})
	if err != nil {
		t.Fatalf("parsePDU: %v", err)
	}
	if p.kind != pciFlowControl || p.flowStatus != flowStatusCTS || p.blockSize != 8 || p.stMinRaw != 0x0A {
		t.Fatalf("got %+v, want CTS blockSize=8 stMin=0x0A", p)
	}
}

func TestParsePDU_FlowControl_RejectsUnknownStatus(t *testing.T) {
	if _, err := parsePDU([]byte{0x33, 0, 0}); err == nil {
		t.Fatal("expected error for flow status 3 (unknown)")
	}
}

func TestParsePDU_RejectsEmptyFrame(t *testing.T) {
	if _, err := parsePDU(nil); err == nil {
		t.Fatal("expected error for empty frame")
	}
}

func TestParsePDU_RejectsUnknownPCI(t *testing.T) {
	if _, err := parsePDU([]byte{0x40, 0, 0, 0, 0, 0, 0, 0}); err == nil {
		t.Fatal("expected error for PCI type 4")
	}
}

func TestBuildAndParse_SingleFrameRoundTrip(t *testing.T) {
	payload := []byte{0x22, 0xF1, 0x90}
	frame := buildSingleFrame(payload)
	p, err := parsePDU(frame)
	if err != nil {
		t.Fatalf("parsePDU: %v", err)
	}
	if !bytes.Equal(p.data, payload) {
		t.Errorf("round-tripped data = % 02X, want % 02X", p.data, payload)
	}
}

func TestBuildAndParse_FirstConsecutiveRoundTrip(t *testing.T) {
	full := bytes.Repeat([]byte{0xAB}, 20)
	ff := buildFirstFrame(full[:6], len(full))
	p, err := parsePDU(ff)
	if err != nil {
		t.Fatalf("parsePDU(FF): %v", err)
	}
	buf := append([]byte(nil), p.data...)

	cf := buildConsecutiveFrame(1, full[6:13])
	p2, err := parsePDU(cf)
	if err != nil {
		t.Fatalf("parsePDU(CF): %v", err)
	}
	buf = append(buf, p2.data...)

	if !bytes.Equal(buf[:13], full[:13]) {
		t.Errorf("reassembled prefix = % 02X, want % 02X", buf[:13], full[:13])
	}
}

func TestNextSeq_WrapsAt15(t *testing.T) {
	if got := nextSeq(15); got != 0 {
		t.Errorf("nextSeq(15) = %v, want 0", got)
	}
	if got := nextSeq(3); got != 4 {
		t.Errorf("nextSeq(3) = %v, want 4", got)
	}
}

func TestStMinToDuration(t *testing.T) {
	tests := []struct {
		name string
		in   byte
		want int64 // nanoseconds
	}{
		{"0ms", 0x00, 0},
		{"127ms", 0x7F, 127000000},
		{"100us", 0xF1, 100000},
		{"900us", 0xF9, 900000},
		{"reserved falls back to 0", 0xFA, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := stMinToDuration(tc.in); int64(got) != tc.want {
				t.Errorf("stMinToDuration(%#x) = %v, want %vns", tc.in, got, tc.want)
			}
		})
	}
}
