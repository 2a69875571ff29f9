package dtc

import (
	"math/rand"
	"sync"
	"time"

	"github.com/RobertSloan22/Simulated-OBD2-UDS/vehicle"
)

// ProfileEntry is a trigger-eligible DTC as loaded from a vehicle profile
// (spec §6 profile.dtcs[]): a code, description, MIL policy, and a
// per-second trigger probability while the engine is RUNNING.
type ProfileEntry struct {
	Code            Code
	Description     string
	MILIlluminate   bool
	EmissionRelated bool
	Probability     float64
	ConfirmAfter    int
}

// Manager is one ECU's DTC store: it implements vehicle.DTCEvaluator so the
// vehicle tick task can drive trigger evaluation and MIL aggregation
// without importing this package back (spec §4.4 steps 6-7, §9).
type Manager struct {
	mu      sync.Mutex
	records map[string]*Record
	entries []ProfileEntry
	rng     *rand.Rand
}

func NewManager(seed int64) *Manager {
	return &Manager{
		records: make(map[string]*Record),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// RegisterEntries loads the profile's candidate DTCs. Called once at
// startup from the profile package's loaded configuration.
func (m *Manager) RegisterEntries(entries []ProfileEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = entries
}

// EvaluateTick implements vehicle.DTCEvaluator: it rolls each registered
// entry's per-second probability while the engine is running, advances the
// pending/confirmed/permanent state machine, and reports whether any
// stored DTC currently demands the MIL be lit.
func (m *Manager) EvaluateTick(snapshot vehicle.Snapshot, dt time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	running := snapshot.Engine == vehicle.EngineRunning
	if running {
		for _, e := range m.entries {
			if e.Probability <= 0 {
				continue
			}
			if m.rng.Float64() < e.Probability*dt.Seconds() {
				m.detect(e, snapshot)
			}
		}
	}

	mil := false
	for _, r := range m.records {
		if r.illuminatesMIL() {
			mil = true
		}
	}
	return mil
}

func (m *Manager) detect(e ProfileEntry, snapshot vehicle.Snapshot) {
	confirmAfter := e.ConfirmAfter
	if confirmAfter <= 0 {
		confirmAfter = 2
	}
	now := nowFunc()

	r, ok := m.records[e.Code.String()]
	if !ok {
		r = &Record{
			Definition: Definition{
				Code: e.Code, Description: e.Description,
				EmissionRelated: e.EmissionRelated, MILIlluminate: e.MILIlluminate,
				ConfirmAfter: confirmAfter,
			},
			State:     Pending,
			FirstSeen: now,
		}
		snap := snapshot
		r.Freeze = &snap
		m.records[e.Code.String()] = r
	}

	r.Occurrences++
	r.LastSeen = now

	switch r.State {
	case Pending:
		if r.Occurrences >= r.ConfirmAfter {
			r.State = Confirmed
		}
	case Confirmed:
		if r.EmissionRelated {
			r.State = Permanent
		}
	case History:
		// a previously cleared code reappearing restarts its lifecycle.
		r.State = Pending
		r.Occurrences = 1
		r.FirstSeen = now
		snap := snapshot
		r.Freeze = &snap
	}
}

// InjectDTC forces a DTC straight to CONFIRMED (or PERMANENT, if
// emission-related) for test/demo harnesses, per spec §6's inject_dtc
// control operation. It bypasses the probability roll entirely.
func (m *Manager) InjectDTC(e ProfileEntry, snapshot vehicle.Snapshot) *Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	confirmAfter := e.ConfirmAfter
	if confirmAfter <= 0 {
		confirmAfter = 2
	}
	now := nowFunc()
	state := Confirmed
	if e.EmissionRelated {
		state = Permanent
	}
	snap := snapshot
	r := &Record{
		Definition: Definition{
			Code: e.Code, Description: e.Description,
			EmissionRelated: e.EmissionRelated, MILIlluminate: e.MILIlluminate,
			ConfirmAfter: confirmAfter,
		},
		State:       state,
		Occurrences: confirmAfter,
		FirstSeen:   now,
		LastSeen:    now,
		Freeze:      &snap,
	}
	m.records[e.Code.String()] = r
	return r
}

// ClearDTCs implements service 0x14 / Mode 04: PENDING and CONFIRMED
// records move to HISTORY rather than being discarded, so a later lookup
// can still distinguish "cleared" from "never happened"; PERMANENT records
// are untouched, since emission-related codes cannot be cleared this way.
func (m *Manager) ClearDTCs() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		switch r.State {
		case Pending, Confirmed:
			r.State = History
		}
	}
}

// ListDTCs returns records whose state is one of the given states, in no
// particular order; callers needing Mode 03/07/0A semantics filter by
// Pending/Confirmed or 0x19's subfunction accordingly.
func (m *Manager) ListDTCs(states ...State) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[State]bool, len(states))
	for _, s := range states {
		want[s] = true
	}
	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		if len(want) == 0 || want[r.State] {
			out = append(out, *r)
		}
	}
	return out
}

// GetFreezeFrame returns the stored freeze frame for code, if any (Mode 02).
func (m *Manager) GetFreezeFrame(code Code) (*vehicle.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[code.String()]
	if !ok || r.Freeze == nil {
		return nil, false
	}
	snap := *r.Freeze
	return &snap, true
}

var nowFunc = time.Now
