package uds

import (
	"encoding/binary"
	"sync"
	"time"
)

// routine statuses returned by requestResult (spec §4.3's "routine-status
// byte"): 0x00 success, 0x01 still running, 0x02 stopped before finishing.
const (
	routineSuccess = 0x00
	routineRunning = 0x01
	routineStopped = 0x02
)

// routineDurations gives a handful of representative routine identifiers
// nonzero completion times, grounded on SPEC_FULL §4.8's async routine
// control supplement; anything unlisted completes immediately.
var routineDurations = map[uint16]time.Duration{
	0x0203: 3 * time.Second, // erase-memory-style routine
	0x0204: 5 * time.Second, // check-programming-dependencies-style routine
}

type routineEntry struct {
	doneAt  time.Time
	stopped bool
}

// RoutineRegistry tracks active/completed RoutineControl (0x31) routines
// for one ECU's UDS session.
type RoutineRegistry struct {
	mu      sync.Mutex
	entries map[uint16]*routineEntry
}

func NewRoutineRegistry() *RoutineRegistry {
	return &RoutineRegistry{entries: make(map[uint16]*routineEntry)}
}

// serviceRoutineControl implements service 0x31.
func (s *Session) serviceRoutineControl(request []byte, routines *RoutineRegistry) []byte {
	if len(request) < 4 {
		return negative(0x31, NRCIncorrectMessageLength)
	}
	sub := request[1]
	routineID := binary.BigEndian.Uint16(request[2:4])

	switch sub {
	case 0x01: // start
		if s.current == SessionDefault {
			return negative(0x31, NRCServiceNotSupportedInActiveSession)
		}
		routines.mu.Lock()
		routines.entries[routineID] = &routineEntry{doneAt: timeNow().Add(routineDurations[routineID])}
		routines.mu.Unlock()
		return []byte{0x71, 0x01, request[2], request[3], routineRunning}

	case 0x02: // stop
		routines.mu.Lock()
		if e, ok := routines.entries[routineID]; ok {
			e.stopped = true
		}
		routines.mu.Unlock()
		return []byte{0x71, 0x02, request[2], request[3], routineStopped}

	case 0x03: // request results
		routines.mu.Lock()
		e, ok := routines.entries[routineID]
		routines.mu.Unlock()
		status := byte(routineSuccess)
		switch {
		case !ok:
			status = routineSuccess
		case e.stopped:
			status = routineStopped
		case timeNow().Before(e.doneAt):
			status = routineRunning
		}
		return []byte{0x71, 0x03, request[2], request[3], status}

	default:
		return negative(0x31, NRCSubFunctionNotSupported)
	}
}
