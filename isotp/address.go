package isotp

// AddressType distinguishes the physical (1:1) and functional (broadcast)
// arbitration IDs a session may receive on.
type AddressType int

const (
	Physical AddressType = iota
	Functional
)

// Address is an 11-bit physical/functional request-response pair, the only
// addressing mode this simulator's wire format uses (no extended IDs, no
// 29-bit fixed addressing — spec §6 rules both out).
type Address struct {
	RxIDPhysical   uint16
	RxIDFunctional uint16 // 0 disables functional (broadcast) delivery
	TxID           uint16
}

// NewAddress mirrors the teacher's NewAddress/validate panic-on-malformed
// pattern: a misconfigured address is a programmer error, not something to
// recover from at runtime.
func NewAddress(rxPhysical, txID, rxFunctional uint16) *Address {
	a := &Address{RxIDPhysical: rxPhysical, RxIDFunctional: rxFunctional, TxID: txID}
	a.validate()
	return a
}

func (a *Address) validate() {
	if a.RxIDPhysical == 0 || a.TxID == 0 {
		panic("isotp: physical rx id and tx id must both be set")
	}
	if a.RxIDPhysical == a.TxID {
		panic("isotp: rx id and tx id must differ")
	}
	if a.RxIDFunctional != 0 && a.RxIDFunctional == a.TxID {
		panic("isotp: functional rx id must differ from tx id")
	}
	if a.RxIDPhysical > 0x7FF || a.TxID > 0x7FF || a.RxIDFunctional > 0x7FF {
		panic("isotp: 11-bit addressing only, ids must be <= 0x7FF")
	}
}

// IsForMe reports whether a frame with the given arbitration ID should be
// delivered to this address, and which addressing type it arrived on.
func (a *Address) IsForMe(id uint16) (AddressType, bool) {
	switch {
	case id == a.RxIDPhysical:
		return Physical, true
	case a.RxIDFunctional != 0 && id == a.RxIDFunctional:
		return Functional, true
	default:
		return 0, false
	}
}
