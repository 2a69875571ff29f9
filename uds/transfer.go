package uds

import (
	"sync"

	"github.com/marcinbor85/gohex"
)

const transferMaxBlockLength = 0x1000

// Transfer is the RequestDownload/TransferData/RequestTransferExit (0x34/
// 0x36/0x37) firmware-download state machine this project's expansion
// adds (SPEC_FULL §4.8): blocks accumulate into a gohex.Memory image
// rather than being discarded, so a completed transfer can be inspected.
type Transfer struct {
	mu       sync.Mutex
	active   bool
	address  uint32
	nextSeq  byte
	mem      *gohex.Memory
}

func NewTransfer() *Transfer {
	return &Transfer{}
}

// serviceRequestDownload implements service 0x34: requires a PROGRAMMING
// session and an unlocked security level.
func (s *Session) serviceRequestDownload(request []byte, t *Transfer) []byte {
	if s.current != SessionProgramming {
		return negative(0x34, NRCServiceNotSupportedInActiveSession)
	}
	if s.security == SecurityLocked {
		return negative(0x34, NRCSecurityAccessDenied)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = true
	t.address = 0
	t.nextSeq = 1
	t.mem = gohex.NewMemory()

	return []byte{0x74, 0x20, byte(transferMaxBlockLength >> 8), byte(transferMaxBlockLength & 0xFF)}
}

// serviceTransferData implements service 0x36: each block is appended to
// the in-progress firmware image at the next address.
func (s *Session) serviceTransferData(request []byte, t *Transfer) []byte {
	if len(request) < 2 {
		return negative(0x36, NRCIncorrectMessageLength)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return negative(0x36, NRCConditionsNotCorrect)
	}
	blockSeq := request[1]
	if blockSeq != t.nextSeq {
		return negative(0x36, NRCConditionsNotCorrect)
	}

	payload := request[2:]
	if t.mem != nil && len(payload) > 0 {
		_ = t.mem.AddBinary(t.address, payload)
	}
	t.address += uint32(len(payload))
	t.nextSeq++

	return []byte{0x76, blockSeq}
}

// serviceRequestTransferExit implements service 0x37.
func (s *Session) serviceRequestTransferExit(t *Transfer) []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = false
	return []byte{0x77}
}
