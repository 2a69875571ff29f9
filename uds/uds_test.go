package uds

import (
	"bytes"
	"testing"
	"time"

	"github.com/RobertSloan22/Simulated-OBD2-UDS/dtc"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/vehicle"
)

func newTestHandler() (*Handler, *vehicle.Simulator, *dtc.Manager) {
	dids := NewDIDStore("1HGBH41JXMN109186", "12345678", "SN123456789012", "v2.0.0", "HW1.0", "ENGINE-ECU")
	h := NewHandler(dids)
	sim := vehicle.NewSimulator(vehicle.DefaultParams())
	mgr := dtc.NewManager(1)
	return h, sim, mgr
}

func TestSessionControl_ExtendedAck(t *testing.T) {
	h, sim, mgr := newTestHandler()
	got := h.Process([]byte{0x10, 0x03}, sim, mgr)
	want := []byte{0x50, 0x03, 0x00, 0x32, 0x01, 0xF4}
	if !bytes.Equal(got, want) {
		t.Errorf("0x10 0x03 = % X, want % X", got, want)
	}
	if h.Session.Current() != SessionExtended {
		t.Errorf("session = %v, want EXTENDED", h.Session.Current())
	}
}

func TestSessionControl_SafetyFromDefaultRejected(t *testing.T) {
	h, sim, mgr := newTestHandler()
	got := h.Process([]byte{0x10, 0x04}, sim, mgr)
	want := negative(0x10, NRCSubFunctionNotSupportedInActiveSession)
	if !bytes.Equal(got, want) {
		t.Errorf("SAFETY from DEFAULT = % X, want % X", got, want)
	}
}

func TestSecurityAccess_SeedThenCorrectKey(t *testing.T) {
	h, sim, mgr := newTestHandler()
	h.Process([]byte{0x10, 0x03}, sim, mgr)

	seedResp := h.Process([]byte{0x27, 0x01}, sim, mgr)
	if len(seedResp) != 6 || seedResp[0] != 0x67 || seedResp[1] != 0x01 {
		t.Fatalf("seed response = % X, unexpected shape", seedResp)
	}
	var seed uint32
	for _, b := range seedResp[2:6] {
		seed = seed<<8 | uint32(b)
	}
	key := seed ^ 0x12345678
	keyReq := []byte{0x27, 0x02, byte(key >> 24), byte(key >> 16), byte(key >> 8), byte(key)}

	got := h.Process(keyReq, sim, mgr)
	want := []byte{0x67, 0x02}
	if !bytes.Equal(got, want) {
		t.Errorf("correct key = % X, want % X", got, want)
	}
	if h.Session.Security() != SecurityLevel1 {
		t.Errorf("security level = %v, want LEVEL_1", h.Session.Security())
	}
}

func TestSecurityAccess_ThreeWrongKeysThenLockout(t *testing.T) {
	h, sim, mgr := newTestHandler()
	h.Process([]byte{0x10, 0x03}, sim, mgr)

	for i := 0; i < 3; i++ {
		h.Process([]byte{0x27, 0x01}, sim, mgr)
		got := h.Process([]byte{0x27, 0x02, 0x00, 0x00, 0x00, 0x00}, sim, mgr)
		want := negative(0x27, NRCInvalidKey)
		if !bytes.Equal(got, want) {
			t.Fatalf("wrong key attempt %d = % X, want % X", i+1, got, want)
		}
	}

	got := h.Process([]byte{0x27, 0x01}, sim, mgr)
	want := negative(0x27, NRCExceededNumberOfAttempts)
	if !bytes.Equal(got, want) {
		t.Errorf("fourth seed request after lockout = % X, want % X", got, want)
	}
}

func TestReadDataByIdentifier_VIN(t *testing.T) {
	h, sim, mgr := newTestHandler()
	got := h.Process([]byte{0x22, 0xF1, 0x90}, sim, mgr)
	want := append([]byte{0x62, 0xF1, 0x90}, []byte("1HGBH41JXMN109186")...)
	if !bytes.Equal(got, want) {
		t.Errorf("0x22 F190 = % X, want % X", got, want)
	}
}

func TestWriteDataByIdentifier_DeniedWhenLocked(t *testing.T) {
	h, sim, mgr := newTestHandler()
	h.Process([]byte{0x10, 0x03}, sim, mgr)
	got := h.Process([]byte{0x2E, 0xF1, 0x87, 0x01, 0x02}, sim, mgr)
	want := negative(0x2E, NRCSecurityAccessDenied)
	if !bytes.Equal(got, want) {
		t.Errorf("0x2E while locked = % X, want % X", got, want)
	}
}

func TestRoutineControl_RunningThenComplete(t *testing.T) {
	h, sim, mgr := newTestHandler()
	h.Process([]byte{0x10, 0x03}, sim, mgr)

	start := h.Process([]byte{0x31, 0x01, 0x02, 0x03}, sim, mgr)
	if len(start) != 5 || start[4] != routineRunning {
		t.Fatalf("routine start = % X, want status RUNNING", start)
	}

	result := h.Process([]byte{0x31, 0x03, 0x02, 0x03}, sim, mgr)
	if result[4] != routineRunning {
		t.Errorf("requestResult before completion = % X, want RUNNING", result)
	}

	defer func(orig func() time.Time) { timeNow = orig }(timeNow)
	timeNow = func() time.Time { return time.Now().Add(routineDurations[0x0203] + time.Second) }
	result = h.Process([]byte{0x31, 0x03, 0x02, 0x03}, sim, mgr)
	if result[4] != routineSuccess {
		t.Errorf("requestResult after completion = % X, want SUCCESS", result)
	}
}

func TestClearDiagnosticInformation(t *testing.T) {
	h, sim, mgr := newTestHandler()
	code, _ := dtc.ParseCode("P0171")
	mgr.InjectDTC(dtc.ProfileEntry{Code: code, Description: "lean"}, sim.Snapshot())

	got := h.Process([]byte{0x14, 0xFF, 0xFF, 0xFF}, sim, mgr)
	if !bytes.Equal(got, []byte{0x54}) {
		t.Errorf("0x14 ack = % X, want 54", got)
	}
	if n := len(mgr.ListDTCs(dtc.Confirmed)); n != 0 {
		t.Errorf("expected no CONFIRMED DTCs after 0x14, got %d", n)
	}
}

func TestEcuReset_ClearsSessionAndSecurity(t *testing.T) {
	h, sim, mgr := newTestHandler()
	h.Process([]byte{0x10, 0x03}, sim, mgr)
	h.Session.security = SecurityLevel1

	got := h.Process([]byte{0x11, 0x01}, sim, mgr)
	want := []byte{0x51, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("0x11 0x01 = % X, want % X", got, want)
	}
	if h.Session.Current() != SessionDefault {
		t.Errorf("session after reset = %v, want DEFAULT", h.Session.Current())
	}
	if h.Session.Security() != SecurityLocked {
		t.Errorf("security after reset = %v, want LOCKED", h.Session.Security())
	}
}

func TestEcuReset_UnsupportedResetType(t *testing.T) {
	h, sim, mgr := newTestHandler()
	got := h.Process([]byte{0x11, 0x7F}, sim, mgr)
	want := negative(0x11, NRCSubFunctionNotSupported)
	if !bytes.Equal(got, want) {
		t.Errorf("0x11 0x7F = % X, want % X", got, want)
	}
}

func TestTesterPresent_SuppressedResponse(t *testing.T) {
	h, sim, mgr := newTestHandler()
	got := h.Process([]byte{0x3E, 0x80}, sim, mgr)
	if got != nil {
		t.Errorf("suppressed tester present = % X, want nil", got)
	}
}

func TestUnsupportedService(t *testing.T) {
	h, sim, mgr := newTestHandler()
	got := h.Process([]byte{0x99}, sim, mgr)
	want := negative(0x99, NRCServiceNotSupported)
	if !bytes.Equal(got, want) {
		t.Errorf("unsupported service = % X, want % X", got, want)
	}
}
