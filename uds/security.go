package uds

import (
	"crypto/aes"
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/chmike/cmac-go"
	"github.com/jellydator/ttlcache/v3"
)

const (
	maxSecurityAttempts = 3
	lockoutDuration     = 10 * time.Second
)

// securityState is the SecurityAccess (0x27) sub-machine: a deterministic
// seed derived from a per-boot nonce and a monotonically increasing
// counter via AES-CMAC (spec §4.3, §9's resolved Open Question), plus a
// ttlcache-backed lockout once three keys in a row are wrong.
type securityState struct {
	bootNonce [16]byte
	counter   uint32
	pending   *uint32 // seed value awaiting a key, nil if none outstanding
	lockouts  *ttlcache.Cache[string, int]
}

func newSecurityState() securityState {
	var nonce [16]byte
	_, _ = rand.Read(nonce[:])
	return securityState{
		bootNonce: nonce,
		lockouts:  ttlcache.New[string, int](ttlcache.WithTTL[string, int](lockoutDuration)),
	}
}

func (s *securityState) deriveSeed() uint32 {
	s.counter++
	mac, err := cmac.New(aes.NewCipher, s.bootNonce[:])
	if err != nil {
		return s.counter // unreachable: bootNonce is always 16 bytes
	}
	var ctrBytes [4]byte
	binary.BigEndian.PutUint32(ctrBytes[:], s.counter)
	mac.Write(ctrBytes[:])
	sum := mac.Sum(nil)
	return binary.BigEndian.Uint32(sum[:4])
}

func (s *securityState) locked() bool {
	if s.lockouts == nil {
		return false
	}
	item := s.lockouts.Get("attempts")
	return item != nil && item.Value() >= maxSecurityAttempts
}

func (s *securityState) recordFailure() {
	if s.lockouts == nil {
		return
	}
	item := s.lockouts.Get("attempts")
	n := 1
	if item != nil {
		n = item.Value() + 1
	}
	s.lockouts.Set("attempts", n, ttlcache.DefaultTTL)
}

func (s *securityState) resetFailures() {
	if s.lockouts != nil {
		s.lockouts.Delete("attempts")
	}
}

// serviceSecurityAccess implements service 0x27, spec §4.3: odd
// sub-functions request a seed, even sub-functions submit a key; key
// check is seed XOR 0x12345678 at level 1.
func (s *Session) serviceSecurityAccess(request []byte) []byte {
	if s.sec.lockouts == nil {
		s.sec = newSecurityState()
	}
	if len(request) < 2 {
		return negative(0x27, NRCIncorrectMessageLength)
	}
	sub := request[1]

	if sub%2 == 1 {
		level := SecurityLevel((sub + 1) / 2)
		if s.security >= level {
			return []byte{0x67, sub, 0x00, 0x00, 0x00, 0x00}
		}
		if s.sec.locked() {
			return negative(0x27, NRCExceededNumberOfAttempts)
		}
		seed := s.sec.deriveSeed()
		s.sec.pending = &seed
		var seedBytes [4]byte
		binary.BigEndian.PutUint32(seedBytes[:], seed)
		return append([]byte{0x67, sub}, seedBytes[:]...)
	}

	if len(request) < 6 {
		return negative(0x27, NRCIncorrectMessageLength)
	}
	if s.sec.pending == nil {
		return negative(0x27, NRCConditionsNotCorrect)
	}
	level := SecurityLevel(sub / 2)
	providedKey := binary.BigEndian.Uint32(request[2:6])
	expectedKey := *s.sec.pending ^ 0x12345678
	s.sec.pending = nil

	if providedKey == expectedKey {
		s.security = level
		s.sec.resetFailures()
		return []byte{0x67, sub}
	}
	s.sec.recordFailure()
	return negative(0x27, NRCInvalidKey)
}
