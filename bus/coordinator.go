// Package bus coordinates the fixed set of ECU actors sharing one CAN
// medium (spec §4.5): it owns ECU registration and lookup by name, while
// the actual frame fan-out is canbus.Bus's job (each Actor subscribes to
// the same underlying medium and filters by arbitration ID itself).
package bus

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/RobertSloan22/Simulated-OBD2-UDS/canbus"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/ecu"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/profile"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/vehicle"
)

// Coordinator exclusively owns the set of registered ECUs (spec §3
// Ownership). It does not see individual frames — each Actor subscribes to
// Medium directly — but it is the one place that knows the whole fleet, for
// the control surface's by-name and broadcast-style operations.
type Coordinator struct {
	Medium canbus.Bus
	Sim    *vehicle.Simulator

	actors map[string]*ecu.Actor
	order  []string
	log    *logrus.Entry
}

func NewCoordinator(medium canbus.Bus, sim *vehicle.Simulator, log *logrus.Entry) *Coordinator {
	return &Coordinator{
		Medium: medium,
		Sim:    sim,
		actors: make(map[string]*ecu.Actor),
		log:    log,
	}
}

// Register wires a new ECU identity into the coordinator's fleet.
func (c *Coordinator) Register(ctx context.Context, id ecu.Identity, dtcSeed int64) *ecu.Actor {
	a := ecu.NewActor(ctx, id, c.Medium, c.Sim, dtcSeed, c.log)
	c.actors[id.Name] = a
	c.order = append(c.order, id.Name)
	c.log.WithFields(logrus.Fields{
		"ecu": id.Name, "request_id": id.RequestID, "response_id": id.ResponseID,
	}).Info("registered ECU")
	return a
}

// RegisterDefaultFleet registers the engine/transmission/ABS identities
// (original_source/lib/multi_ecu.py's predefined fleet) with distinct DTC
// PRNG seeds so their trigger rolls don't lock-step. prof.Vehicle.VIN is
// vehicle-wide and overrides every identity's VIN; prof.ECU overrides only
// the engine identity's descriptive fields, matching profile.Default()'s
// single ECU entry naming "ENGINE-ECU".
func (c *Coordinator) RegisterDefaultFleet(ctx context.Context, prof profile.Profile) {
	engine := ecu.EngineIdentity
	engine.VIN = prof.Vehicle.VIN
	if prof.ECU.SerialNumber != "" {
		engine.SerialNumber = prof.ECU.SerialNumber
	}
	if prof.ECU.SoftwareVer != "" {
		engine.SoftwareVer = prof.ECU.SoftwareVer
	}
	if prof.ECU.HardwareVer != "" {
		engine.HardwareVer = prof.ECU.HardwareVer
	}
	if prof.ECU.CalibrationID != "" {
		engine.CalibrationID = prof.ECU.CalibrationID
	}

	transmission := ecu.TransmissionIdentity
	transmission.VIN = prof.Vehicle.VIN
	abs := ecu.ABSIdentity
	abs.VIN = prof.Vehicle.VIN

	c.Register(ctx, engine, 1)
	c.Register(ctx, transmission, 2)
	c.Register(ctx, abs, 3)
}

// ByName returns the registered Actor, or nil.
func (c *Coordinator) ByName(name string) *ecu.Actor {
	return c.actors[name]
}

// List returns every registered Actor in registration order.
func (c *Coordinator) List() []*ecu.Actor {
	out := make([]*ecu.Actor, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.actors[name])
	}
	return out
}

// Run starts every registered Actor's dispatch loop plus the vehicle tick
// task under one errgroup cancellation scope (spec §5's scheduling model,
// wired with golang.org/x/sync/errgroup per SPEC_FULL §4.7). tickInterval
// drives the Simulator's sole writer task; cancelling ctx stops the whole
// group and RunTicker's context.Canceled is swallowed as a clean shutdown.
func (c *Coordinator) Run(ctx context.Context, tickInterval time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, a := range c.List() {
		a := a
		g.Go(func() error {
			a.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		err := c.Sim.RunTicker(gctx, tickInterval)
		if err == context.Canceled || err == context.DeadlineExceeded {
			return nil
		}
		return err
	})
	return g.Wait()
}
