package isotp

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RobertSloan22/Simulated-OBD2-UDS/canbus"
)

// Session is the per-address-pair ISO-TP state machine (spec §3, §4.1):
// one inbound and one outbound transfer may be active at a time. Send and
// Recv are the only blocking entry points a caller (an ECU actor) uses;
// frame reassembly and flow-control bookkeeping run in a background task
// started by NewSession, matching the one-task-per-suspension-point model
// of spec §5.
type Session struct {
	addr *Address
	cfg  Config
	bus  canbus.Bus
	log  *logrus.Entry

	rxFrames    <-chan canbus.Frame
	unsubscribe func()

	incoming chan reassembled
	fc       chan pdu
	errs     chan error
}

type reassembled struct {
	payload  []byte
	addrType AddressType
}

type rxState struct {
	active    bool
	total     int
	buf       []byte
	expectSeq int
	addrType  AddressType
}

func NewSession(ctx context.Context, addr *Address, cfg Config, bus canbus.Bus, log *logrus.Entry) *Session {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	rxFrames, unsubscribe := bus.Subscribe(cfg.QueueDepth * 4)
	s := &Session{
		addr:        addr,
		cfg:         cfg,
		bus:         bus,
		log:         log,
		rxFrames:    rxFrames,
		unsubscribe: unsubscribe,
		incoming:    make(chan reassembled, cfg.QueueDepth),
		fc:          make(chan pdu, 1),
		errs:        make(chan error, 4),
	}
	go s.run(ctx)
	return s
}

// Errors surfaces receive-side faults the run loop can't return directly
// (Send's own faults are returned from Send itself): N_Cr timeout and
// consecutive-frame sequence mismatches, both of which abort the
// in-progress receive. Sends are non-blocking; a caller that never reads
// this channel just never learns about these, same as if it only logged.
func (s *Session) Errors() <-chan error {
	return s.errs
}

func (s *Session) reportError(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

// Recv blocks until a fully reassembled inbound payload is available.
func (s *Session) Recv(ctx context.Context) ([]byte, AddressType, error) {
	select {
	case r := <-s.incoming:
		return r.payload, r.addrType, nil
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
}

// Send transmits payload, segmenting it and running the flow-control
// handshake when it does not fit in a single frame.
func (s *Session) Send(ctx context.Context, payload []byte) error {
	if len(payload) == 0 || len(payload) > MaxPayloadSize {
		return FrameTooLongError{NewIsoTpError("payload length out of range")}
	}
	if len(payload) <= 7 {
		return s.transmit(ctx, buildSingleFrame(payload))
	}

	if err := s.transmit(ctx, buildFirstFrame(payload[:6], len(payload))); err != nil {
		return err
	}
	sent := 6
	wft := 0
	seq := 1

	for sent < len(payload) {
		var fc pdu
		select {
		case fc = <-s.fc:
		case <-time.After(s.cfg.TimeoutN_Bs):
			return FlowControlTimeoutError{NewIsoTpError("")}
		case <-ctx.Done():
			return ctx.Err()
		}

		switch fc.flowStatus {
		case flowStatusOverflow:
			return OverflowError{NewIsoTpError("")}
		case flowStatusWait:
			wft++
			if wft > s.cfg.WftMax {
				return MaximumWaitFrameReachedError{NewIsoTpError("")}
			}
			continue
		case flowStatusCTS:
			wft = 0
			sentThisBlock := 0
			stMin := stMinToDuration(fc.stMinRaw)
			for sent < len(payload) && (fc.blockSize == 0 || sentThisBlock < fc.blockSize) {
				end := sent + 7
				if end > len(payload) {
					end = len(payload)
				}
				if err := s.transmit(ctx, buildConsecutiveFrame(seq, payload[sent:end])); err != nil {
					return err
				}
				sent = end
				seq = nextSeq(seq)
				sentThisBlock++
				if sent < len(payload) && (fc.blockSize == 0 || sentThisBlock < fc.blockSize) {
					select {
					case <-time.After(stMin):
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
		}
	}
	return nil
}

func (s *Session) transmit(ctx context.Context, data []byte) error {
	return s.bus.Send(ctx, canbus.Frame{ID: s.addr.TxID, Data: data})
}

func (s *Session) sendFlowControl(ctx context.Context, status, blockSize int, stMin byte) {
	_ = s.bus.Send(ctx, canbus.Frame{ID: s.addr.TxID, Data: buildFlowControl(status, blockSize, stMin)})
}

func (s *Session) deliver(payload []byte, addrType AddressType) {
	cp := append([]byte(nil), payload...)
	select {
	case s.incoming <- reassembled{payload: cp, addrType: addrType}:
	default:
		s.log.Warn("inbound queue full, dropping completed payload")
	}
}

func (s *Session) run(ctx context.Context) {
	defer s.unsubscribe()

	var rx rxState
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	stopTimer := func() {
		timer.Stop()
		select {
		case <-timer.C:
		default:
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return

		case frame, ok := <-s.rxFrames:
			if !ok {
				return
			}
			addrType, forMe := s.addr.IsForMe(frame.ID)
			if !forMe {
				continue
			}
			p, err := parsePDU(frame.Data)
			if err != nil {
				s.log.WithError(err).Debug("discarding malformed frame")
				continue
			}

			switch p.kind {
			case pciFlowControl:
				select {
				case s.fc <- *p:
				default:
					s.log.Warn("unexpected flow control frame, no send in progress")
				}

			case pciSingleFrame:
				if rx.active {
					s.log.Warn("single frame interrupted an in-progress receive, discarding partial buffer")
					rx = rxState{}
					stopTimer()
				}
				s.deliver(p.data, addrType)

			case pciFirstFrame:
				if rx.active {
					s.log.Warn("new first frame replaced an in-progress receiver")
				}
				rx = rxState{active: true, total: p.length, buf: append([]byte(nil), p.data...), expectSeq: 1, addrType: addrType}
				s.sendFlowControl(ctx, flowStatusCTS, s.cfg.BlockSize, s.cfg.STmin)
				if len(rx.buf) >= rx.total {
					s.deliver(rx.buf[:rx.total], addrType)
					rx = rxState{}
					stopTimer()
				} else {
					stopTimer()
					timer.Reset(s.cfg.TimeoutN_Cr)
				}

			case pciConsecutiveFrame:
				if !rx.active {
					s.log.Debug("unexpected consecutive frame, no receive in progress")
					continue
				}
				if p.seqNum != rx.expectSeq {
					s.log.WithFields(logrus.Fields{"expected": rx.expectSeq, "got": p.seqNum}).
						Warn("sequence mismatch, aborting receive")
					s.reportError(WrongSequenceNumberError{NewIsoTpError("")})
					rx = rxState{}
					stopTimer()
					continue
				}
				remaining := rx.total - len(rx.buf)
				chunk := p.data
				if len(chunk) > remaining {
					chunk = chunk[:remaining]
				}
				rx.buf = append(rx.buf, chunk...)
				rx.expectSeq = nextSeq(rx.expectSeq)
				if len(rx.buf) >= rx.total {
					s.deliver(rx.buf, rx.addrType)
					rx = rxState{}
					stopTimer()
				} else {
					stopTimer()
					timer.Reset(s.cfg.TimeoutN_Cr)
				}
			}

		case <-timer.C:
			s.log.Warn("N_Cr timeout, discarding partial receive buffer")
			s.reportError(ConsecutiveFrameTimeoutError{NewIsoTpError("")})
			rx = rxState{}
		}
	}
}
