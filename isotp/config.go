package isotp

import "time"

// Config holds the per-session ISO-TP timing and flow-control parameters,
// matching spec §4.1's canonical timeout names.
type Config struct {
	TimeoutN_Bs time.Duration // sender waiting for Flow Control
	TimeoutN_Cr time.Duration // receiver waiting for next Consecutive Frame
	TimeoutN_As time.Duration // single-frame-send, implementation-defined
	TimeoutN_Ar time.Duration // single-frame-receive ack, implementation-defined

	BlockSize int  // frames per Flow Control window; 0 = unlimited
	STmin     byte // separation time advertised in our Flow Control frames

	WftMax     int // bounded number of consecutive WAIT flow controls tolerated
	QueueDepth int // bounded backlog of inbound requests while a response is in flight
}

// DefaultConfig reproduces spec §4.1's stated defaults.
func DefaultConfig() Config {
	return Config{
		TimeoutN_Bs: 1000 * time.Millisecond,
		TimeoutN_Cr: 1000 * time.Millisecond,
		TimeoutN_As: 100 * time.Millisecond,
		TimeoutN_Ar: 100 * time.Millisecond,

		BlockSize: 0,
		STmin:     0,

		WftMax:     10,
		QueueDepth: 4,
	}
}

func (c Config) Validate() error {
	if c.WftMax < 0 {
		return NewIsoTpError("WftMax must not be negative")
	}
	if c.BlockSize < 0 || c.BlockSize > 0xFF {
		return NewIsoTpError("BlockSize must fit in one byte")
	}
	if c.QueueDepth <= 0 {
		return NewIsoTpError("QueueDepth must be positive")
	}
	return nil
}
