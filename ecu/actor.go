package ecu

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/RobertSloan22/Simulated-OBD2-UDS/canbus"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/dtc"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/isotp"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/obd"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/uds"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/vehicle"
)

// inboundRequest is one reassembled ISO-TP payload waiting to be dispatched.
type inboundRequest struct {
	payload  []byte
	addrType isotp.AddressType
}

// backlogDepth mirrors spec §4.5's default bounded queue depth.
const backlogDepth = 4

// Actor is one ECU: it owns an ISO-TP session, a DTC manager, and a UDS
// session exclusively, and shares the vehicle.Simulator with every other
// Actor on the bus.
type Actor struct {
	Identity Identity

	session *isotp.Session
	obdH    *obd.Handler
	udsH    *uds.Handler
	sim     *vehicle.Simulator
	dtc     *dtc.Manager

	backlog *isotp.SafeQueue[inboundRequest]
	notify  chan struct{}

	log *logrus.Entry
}

// NewActor wires one ECU identity to a fresh ISO-TP session on bus, its own
// DTC manager and UDS session, and the vehicle simulator every Actor shares.
func NewActor(ctx context.Context, id Identity, bus canbus.Bus, sim *vehicle.Simulator, dtcSeed int64, log *logrus.Entry) *Actor {
	addr := isotp.NewAddress(id.RequestID, id.ResponseID, id.FunctionalAddress)
	cfg := isotp.DefaultConfig()
	cfg.QueueDepth = backlogDepth

	entry := log.WithField("ecu", id.Name)
	mgr := dtc.NewManager(dtcSeed)
	sim.RegisterEvaluator(mgr)

	a := &Actor{
		Identity: id,
		session:  isotp.NewSession(ctx, addr, cfg, bus, entry),
		obdH: obd.NewHandler(obd.Identity{
			VIN:           id.VIN,
			CalibrationID: id.CalibrationID,
			ECUName:       id.Name,
		}),
		udsH: uds.NewHandler(uds.NewDIDStore(id.VIN, id.PartNumber, id.SerialNumber, id.SoftwareVer, id.HardwareVer, id.Name)),
		sim:  sim,
		dtc:  mgr,
		backlog: isotp.NewSafeQueue[inboundRequest](),
		notify:  make(chan struct{}, 1),
		log:     entry,
	}
	return a
}

// DTCManager exposes this Actor's DTC manager to the control surface.
func (a *Actor) DTCManager() *dtc.Manager { return a.dtc }

// Snapshot takes a read-consistent copy of the shared vehicle state.
func (a *Actor) Snapshot() vehicle.Snapshot { return a.sim.Snapshot() }

// SetIgnition, StartEngine, StopEngine, and SetVehicleParams pass through
// to the shared simulator (control-surface operations, spec §6); they are
// not scoped to this Actor alone since the vehicle model is process-wide.
func (a *Actor) SetIgnition(state vehicle.IgnitionState) { a.sim.SetIgnition(state) }
func (a *Actor) StartEngine()                             { a.sim.StartEngine() }
func (a *Actor) StopEngine()                              { a.sim.StopEngine() }
func (a *Actor) SetVehicleParams(rpm, speed, throttle *float64) {
	a.sim.SetVehicleParams(rpm, speed, throttle)
}

// ResetReadiness resets every SUPPORTED_COMPLETE readiness monitor back to
// SUPPORTED_INCOMPLETE on the shared vehicle model (spec §3/§8).
func (a *Actor) ResetReadiness() { a.sim.ResetReadiness() }

// ActuatorControl drives one UDS IOControlByIdentifier short-term
// adjustment against this ECU's own UDS session, entering an EXTENDED
// session first if needed (spec §4.3's 0x2F gate). pct is clamped to
// [0, 100] and mapped onto the wire's 0-255 byte range.
func (a *Actor) ActuatorControl(did uint16, pct float64) []byte {
	if a.udsH.Session.Current() == uds.SessionDefault {
		a.udsH.Process([]byte{0x10, 0x03}, a.sim, a.dtc)
	}
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}
	wire := byte(pct * 255 / 100)
	req := []byte{0x2F, byte(did >> 8), byte(did), 0x03, wire}
	return a.udsH.Process(req, a.sim, a.dtc)
}

// Run drives the Actor until ctx is cancelled: a reader task feeds
// reassembled requests into the bounded backlog (spec §4.5's queued/
// drop-and-log backpressure), and the dispatch loop processes them one at a
// time, serializing every state transition within this ECU (spec §5).
func (a *Actor) Run(ctx context.Context) {
	go a.readLoop(ctx)
	a.dispatchLoop(ctx)
}

func (a *Actor) readLoop(ctx context.Context) {
	for {
		payload, addrType, err := a.session.Recv(ctx)
		if err != nil {
			return
		}
		if a.backlog.Len() >= backlogDepth {
			a.log.Warn("inbound request backlog full, dropping request")
			continue
		}
		a.backlog.Push(inboundRequest{payload: payload, addrType: addrType})
		select {
		case a.notify <- struct{}{}:
		default:
		}
	}
}

func (a *Actor) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.notify:
			for {
				req, ok := a.backlog.Pop()
				if !ok {
					break
				}
				a.handle(ctx, req)
			}
		}
	}
}

func (a *Actor) handle(ctx context.Context, req inboundRequest) {
	resp := a.dispatch(req)
	if resp == nil {
		// Functional broadcasts this ECU has no applicable handler for are
		// silently dropped (spec §4.5); so are suppressed UDS responses.
		if req.addrType == isotp.Physical {
			a.log.Debug("no response produced for physical request")
		}
		return
	}
	if err := a.session.Send(ctx, resp); err != nil {
		a.log.WithError(err).Warn("failed to send response")
	}
}

// dispatch classifies request[0] per spec §4.5 and routes to the matching
// handler. Functional-address requests this ECU cannot answer are dropped
// (nil, no NRC); physical-address requests for an unsupported service tier
// get the generic negative response.
func (a *Actor) dispatch(req inboundRequest) []byte {
	if len(req.payload) < 1 {
		return nil
	}
	service := req.payload[0]

	switch {
	case service >= 0x01 && service <= 0x0A:
		if !a.Identity.SupportsOBD {
			return a.dropOrNRC(req, service)
		}
		return a.obdH.Process(req.payload, a.sim, a.dtc)

	case service >= 0x10 && service <= 0x85:
		if !a.Identity.SupportsUDS {
			return a.dropOrNRC(req, service)
		}
		return a.udsH.Process(req.payload, a.sim, a.dtc)

	default:
		return a.dropOrNRC(req, service)
	}
}

func (a *Actor) dropOrNRC(req inboundRequest, service byte) []byte {
	if req.addrType == isotp.Functional {
		return nil
	}
	return []byte{0x7F, service, 0x11}
}
