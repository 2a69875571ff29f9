package dtc

import (
	"testing"
	"time"

	"github.com/RobertSloan22/Simulated-OBD2-UDS/vehicle"
)

func TestParseCode_Bytes(t *testing.T) {
	tests := []struct {
		name string
		code string
		want [2]byte
	}{
		{"catalyst", "P0420", [2]byte{0x04, 0x20}},
		{"misfire all", "P0300", [2]byte{0x03, 0x00}},
		{"chassis", "C0035", [2]byte{0x40, 0x35}},
		{"network", "U0100", [2]byte{0xC1, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCode(tt.code)
			if err != nil {
				t.Fatalf("ParseCode(%q) error: %v", tt.code, err)
			}
			got, err := c.Bytes()
			if err != nil {
				t.Fatalf("Bytes() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Bytes() = %02X, want %02X", got, tt.want)
			}
			if back := DecodeBytes(got); back.String() != tt.code {
				t.Errorf("DecodeBytes round trip = %s, want %s", back, tt.code)
			}
		})
	}
}

func TestParseCode_Invalid(t *testing.T) {
	for _, bad := range []string{"P042", "X0420", "P9420", "PZZZZ"} {
		if _, err := ParseCode(bad); err == nil {
			t.Errorf("ParseCode(%q) expected error, got nil", bad)
		}
	}
}

func TestManager_InjectAndList(t *testing.T) {
	m := NewManager(1)
	snap := vehicle.Snapshot{Engine: vehicle.EngineRunning}

	code, _ := ParseCode("P0420")
	rec := m.InjectDTC(ProfileEntry{Code: code, Description: "catalyst", EmissionRelated: true, MILIlluminate: true}, snap)

	if rec.State != Permanent {
		t.Errorf("injected emission-related DTC should be PERMANENT, got %v", rec.State)
	}
	if got := m.ListDTCs(Permanent); len(got) != 1 {
		t.Fatalf("ListDTCs(Permanent) = %d records, want 1", len(got))
	}
	if _, ok := m.GetFreezeFrame(code); !ok {
		t.Error("expected a freeze frame for the injected DTC")
	}
}

func TestManager_ClearMovesConfirmedToHistory(t *testing.T) {
	m := NewManager(1)
	snap := vehicle.Snapshot{Engine: vehicle.EngineRunning}
	code, _ := ParseCode("P0171")
	m.InjectDTC(ProfileEntry{Code: code, Description: "lean", EmissionRelated: false}, snap)

	m.ClearDTCs()

	if got := m.ListDTCs(Confirmed); len(got) != 0 {
		t.Errorf("expected no CONFIRMED records after clear, got %d", len(got))
	}
	if got := m.ListDTCs(History); len(got) != 1 {
		t.Errorf("expected the cleared DTC in HISTORY, got %d", len(got))
	}
}

func TestManager_EvaluateTick_DeterministicTrigger(t *testing.T) {
	m := NewManager(42)
	code, _ := ParseCode("P0300")
	m.RegisterEntries([]ProfileEntry{
		{Code: code, Description: "misfire", Probability: 1, MILIlluminate: true, ConfirmAfter: 2},
	})

	snap := vehicle.Snapshot{Engine: vehicle.EngineRunning}
	mil := false
	for i := 0; i < 3; i++ {
		mil = m.EvaluateTick(snap, time.Second)
	}
	if !mil {
		t.Error("expected MIL on after three detections at probability 1")
	}
	got := m.ListDTCs(Confirmed)
	if len(got) != 1 || got[0].Occurrences < 2 {
		t.Fatalf("expected one CONFIRMED record with >=2 occurrences, got %+v", got)
	}
}

func TestManager_EvaluateTick_EngineOffNeverTriggers(t *testing.T) {
	m := NewManager(1)
	code, _ := ParseCode("P0300")
	m.RegisterEntries([]ProfileEntry{{Code: code, Probability: 1, ConfirmAfter: 1}})

	snap := vehicle.Snapshot{Engine: vehicle.EngineOff}
	m.EvaluateTick(snap, time.Second)

	if got := m.ListDTCs(); len(got) != 0 {
		t.Errorf("expected no records while engine is off, got %d", len(got))
	}
}

func TestLookup_KnownCode(t *testing.T) {
	d, ok := Lookup("P0420")
	if !ok {
		t.Fatal("expected P0420 in DefaultCatalog")
	}
	if d.Code.String() != "P0420" || !d.EmissionRelated {
		t.Errorf("unexpected definition: %+v", d)
	}
}
