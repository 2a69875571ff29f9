package dtc

import (
	"time"

	"github.com/RobertSloan22/Simulated-OBD2-UDS/vehicle"
)

// State is a DTC's position in the pending/confirmed/permanent lifecycle
// (spec §4.4 step 6, §9), plus a HISTORY state this project's expansion
// adds for DTCs that were confirmed and later cleared rather than
// reconfirmed, so a test harness can tell "cleared" apart from "never
// happened" (the source deletes these outright; SPEC_FULL §4.8 keeps them).
type State int

const (
	Pending State = iota
	Confirmed
	Permanent
	History
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Permanent:
		return "permanent"
	case History:
		return "history"
	default:
		return "unknown"
	}
}

// Definition is the static, profile-independent description of a DTC: the
// code, free-text description, whether an emission-related confirmation
// escalates it to PERMANENT and lights the MIL, and how many trigger
// detections (counted since the code first went PENDING) are required
// before PENDING promotes to CONFIRMED.
type Definition struct {
	Code            Code
	Description     string
	EmissionRelated bool
	MILIlluminate   bool
	ConfirmAfter    int // detections required, spec §4.4 step 6 default 2
}

// Record is one ECU's live instance of a Definition: its current lifecycle
// state, occurrence count, and (if PENDING's first detection captured one)
// the freeze frame snapshot spec §4.2 Mode 02 serves back.
type Record struct {
	Definition
	State       State
	Occurrences int
	FirstSeen   time.Time
	LastSeen    time.Time
	Freeze      *vehicle.Snapshot
}

func (r *Record) illuminatesMIL() bool {
	return r.MILIlluminate && (r.State == Confirmed || r.State == Permanent)
}
