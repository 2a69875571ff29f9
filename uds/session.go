// Package uds implements the UDS (ISO 14229) service handlers: session
// control, security access, data identifiers, I/O control, routine
// control, DTC information/clearing, tester presence, DTC-setting control,
// and the firmware-download trio this project's expansion adds (spec §4.3,
// §4.8). Grounded on this project's source material's uds_services module.
package uds

import (
	"sync"
	"time"
)

type SessionType byte

const (
	SessionDefault     SessionType = 0x01
	SessionProgramming SessionType = 0x02
	SessionExtended    SessionType = 0x03
	SessionSafety      SessionType = 0x04
)

type SecurityLevel byte

const (
	SecurityLocked SecurityLevel = 0x00
	SecurityLevel1 SecurityLevel = 0x01
	SecurityLevel2 SecurityLevel = 0x02
)

const (
	NRCServiceNotSupported                      = 0x11
	NRCSubFunctionNotSupported                   = 0x12
	NRCIncorrectMessageLength                    = 0x13
	NRCConditionsNotCorrect                      = 0x22
	NRCRequestOutOfRange                        = 0x31
	NRCSecurityAccessDenied                      = 0x33
	NRCInvalidKey                                = 0x35
	NRCExceededNumberOfAttempts                  = 0x36
	NRCSubFunctionNotSupportedInActiveSession    = 0x7E
	NRCServiceNotSupportedInActiveSession        = 0x7F
)

const (
	p2Default  = 50 * time.Millisecond
	p2starDefault = 500 * time.Millisecond
	// S3 server timeout: how long an EXTENDED/PROGRAMMING/SAFETY session
	// survives without a request before it reverts to DEFAULT, spec §4.3.
	sessionTimeout = 5 * time.Second
)

// Session is one ECU's UDS session/security state machine. Every field is
// owned by the single ECU actor task; no lock is needed beyond what the
// actor's own serialized dispatch already provides. Current and Security
// return the state by value.
type Session struct {
	mu sync.Mutex

	current      SessionType
	security     SecurityLevel
	lastActivity time.Time

	sec securityState
}

func NewSession() *Session {
	return &Session{current: SessionDefault, lastActivity: timeNow()}
}

var timeNow = time.Now

func negative(service byte, nrc byte) []byte {
	return []byte{0x7F, service, nrc}
}

// touch refreshes the session timer; called on every request except when
// the session has already timed out (checked by expireIfStale first).
func (s *Session) touch() {
	s.lastActivity = timeNow()
}

func (s *Session) expireIfStale() {
	if s.current == SessionDefault {
		return
	}
	if timeNow().Sub(s.lastActivity) > sessionTimeout {
		s.current = SessionDefault
		s.security = SecurityLocked
	}
}

func (s *Session) Current() SessionType    { return s.current }
func (s *Session) Security() SecurityLevel { return s.security }

// serviceDiagnosticSessionControl implements service 0x10.
func (s *Session) serviceDiagnosticSessionControl(request []byte) []byte {
	if len(request) < 2 {
		return negative(0x10, NRCIncorrectMessageLength)
	}
	want := SessionType(request[1])
	switch want {
	case SessionDefault, SessionProgramming, SessionExtended:
	case SessionSafety:
		if s.current == SessionDefault {
			return negative(0x10, NRCSubFunctionNotSupportedInActiveSession)
		}
	default:
		return negative(0x10, NRCSubFunctionNotSupported)
	}

	s.current = want
	s.lastActivity = timeNow()
	if want == SessionDefault {
		s.security = SecurityLocked
	}

	p2 := uint16(p2Default / time.Millisecond)
	p2s := uint16(p2starDefault / time.Millisecond)
	return []byte{0x50, byte(want), byte(p2 >> 8), byte(p2), byte(p2s >> 8), byte(p2s)}
}

// serviceEcuReset implements service 0x11 (SPEC_FULL §4.8 supplement):
// every reset type drops the session back to DEFAULT and clears security,
// and a hard reset (0x01) also restarts the SecurityAccess seed counter as
// if the ECU had just powered on.
func (s *Session) serviceEcuReset(request []byte) []byte {
	if len(request) < 2 {
		return negative(0x11, NRCIncorrectMessageLength)
	}
	resetType := request[1]
	switch resetType {
	case 0x01, 0x02, 0x03:
		s.current = SessionDefault
		s.security = SecurityLocked
		s.lastActivity = timeNow()
		if resetType == 0x01 {
			s.sec = newSecurityState()
		}
		return []byte{0x51, resetType}
	default:
		return negative(0x11, NRCSubFunctionNotSupported)
	}
}

// serviceCommunicationControl implements service 0x28 (SPEC_FULL §4.8
// supplement): acknowledges without modeling actual RX/TX suppression.
func (s *Session) serviceCommunicationControl(request []byte) []byte {
	if len(request) < 3 {
		return negative(0x28, NRCIncorrectMessageLength)
	}
	return []byte{0x68, request[1]}
}

// serviceTesterPresent implements service 0x3E.
func (s *Session) serviceTesterPresent(request []byte) []byte {
	if len(request) < 2 {
		return negative(0x3E, NRCIncorrectMessageLength)
	}
	s.lastActivity = timeNow()
	if request[1] == 0x80 {
		return nil // suppressPositiveResponse
	}
	return []byte{0x7E, 0x00}
}

// serviceControlDTCSetting implements service 0x85.
func (s *Session) serviceControlDTCSetting(request []byte) []byte {
	if len(request) < 2 {
		return negative(0x85, NRCIncorrectMessageLength)
	}
	if s.current != SessionExtended {
		return negative(0x85, NRCServiceNotSupportedInActiveSession)
	}
	return []byte{0xC5, request[1]}
}
