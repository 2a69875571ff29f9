// Package control implements the simulator's control-surface operations
// (spec §6): inject_dtc, clear_dtcs, set_ignition, start_engine,
// stop_engine, set_vehicle_params, get_snapshot, list_dtcs, get_readiness,
// actuator_control. These are the operations the (out-of-scope) HTTP API
// and CLI both sit on top of, grounded on original_source/control_api.py's
// route handlers but expressed as typed Go calls rather than a REST API.
package control

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/RobertSloan22/Simulated-OBD2-UDS/bus"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/dtc"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/ecu"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/vehicle"
)

// Sentinel errors matching control_api.py's error-kind responses (spec §6/
// §7: ecu-not-found, code-invalid, condition-not-met), each discriminable
// with errors.Is against the wrapped error these operations return.
var (
	ErrECUNotFound     = errors.New("ecu not found")
	ErrInvalidCode     = errors.New("invalid dtc code")
	ErrConditionNotMet = errors.New("condition not met")
)

// Surface binds the control-surface operations to one bus coordinator.
type Surface struct {
	Coord *bus.Coordinator
}

func New(coord *bus.Coordinator) *Surface {
	return &Surface{Coord: coord}
}

func (s *Surface) find(ecuName string) (*ecu.Actor, error) {
	a := s.Coord.ByName(ecuName)
	if a == nil {
		return nil, errors.Wrapf(ErrECUNotFound, "%q", ecuName)
	}
	return a, nil
}

// engine resolves the one ECU vehicle-wide operations apply against,
// matching control_api.py always picking ECUType.ENGINE for these routes.
func (s *Surface) engine() (*ecu.Actor, error) {
	for _, a := range s.Coord.List() {
		if a.Identity.Type == ecu.TypeEngine {
			return a, nil
		}
	}
	return nil, errors.Wrap(ErrECUNotFound, "no engine ECU registered")
}

// InjectDTC forces code straight to CONFIRMED on ecuName's DTC manager,
// capturing a freeze frame from the current vehicle snapshot
// (control_api.py's inject_dtc route).
func (s *Surface) InjectDTC(ecuName, code, description string, milIlluminate bool) error {
	a, err := s.find(ecuName)
	if err != nil {
		return err
	}
	parsed, err := dtc.ParseCode(code)
	if err != nil {
		return errors.Wrapf(ErrInvalidCode, "%q: %v", code, err)
	}
	entry := dtc.ProfileEntry{Code: parsed, Description: description, MILIlluminate: milIlluminate}
	a.DTCManager().InjectDTC(entry, a.Snapshot())
	return nil
}

// ClearDTCs clears DTCs from ecuName, or from every registered ECU when
// ecuName is empty (matching control_api.py's clear_dtc "no ecu" branch),
// and resets readiness monitors back to SUPPORTED_INCOMPLETE the same way
// OBD Mode 04 and UDS 0x14 do (spec §4.3's "same effect as Mode 04").
func (s *Surface) ClearDTCs(ecuName string) error {
	if ecuName == "" {
		for _, a := range s.Coord.List() {
			a.DTCManager().ClearDTCs()
			a.ResetReadiness()
		}
		return nil
	}
	a, err := s.find(ecuName)
	if err != nil {
		return err
	}
	a.DTCManager().ClearDTCs()
	a.ResetReadiness()
	return nil
}

// ListDTCs returns the active (non-HISTORY) DTC records for ecuName, or
// for every ECU keyed by name when ecuName is empty. includeHistory widens
// the scope to HISTORY codes too (SPEC_FULL §4.8's additive flag).
func (s *Surface) ListDTCs(ecuName string, includeHistory bool) (map[string][]dtc.Record, error) {
	states := []dtc.State{dtc.Pending, dtc.Confirmed, dtc.Permanent}
	if includeHistory {
		states = append(states, dtc.History)
	}

	out := make(map[string][]dtc.Record)
	if ecuName != "" {
		a, err := s.find(ecuName)
		if err != nil {
			return nil, err
		}
		out[ecuName] = a.DTCManager().ListDTCs(states...)
		return out, nil
	}
	for _, a := range s.Coord.List() {
		out[a.Identity.Name] = a.DTCManager().ListDTCs(states...)
	}
	return out, nil
}

// SetIgnition, StartEngine, and StopEngine apply to the shared vehicle
// model through the engine ECU, matching control_api.py's ignition/engine
// routes (which always resolve ECUType.ENGINE regardless of any ecu name
// the caller passes).
func (s *Surface) SetIgnition(state vehicle.IgnitionState) error {
	a, err := s.engine()
	if err != nil {
		return err
	}
	a.SetIgnition(state)
	return nil
}

func (s *Surface) StartEngine() error {
	a, err := s.engine()
	if err != nil {
		return err
	}
	a.StartEngine()
	return nil
}

func (s *Surface) StopEngine() error {
	a, err := s.engine()
	if err != nil {
		return err
	}
	a.StopEngine()
	return nil
}

// SetVehicleParams applies the direct-override control-surface hook
// (set_vehicle_params); nil fields are left unchanged.
func (s *Surface) SetVehicleParams(rpm, speed, throttle *float64) error {
	a, err := s.engine()
	if err != nil {
		return err
	}
	a.SetVehicleParams(rpm, speed, throttle)
	return nil
}

// GetSnapshot returns a read-consistent copy of the shared vehicle state.
func (s *Surface) GetSnapshot() (vehicle.Snapshot, error) {
	a, err := s.engine()
	if err != nil {
		return vehicle.Snapshot{}, err
	}
	return a.Snapshot(), nil
}

// GetReadiness reports each of the eleven readiness monitors' completion
// state off the shared vehicle snapshot.
func (s *Surface) GetReadiness() (map[string]vehicle.MonitorStatus, error) {
	snap, err := s.GetSnapshot()
	if err != nil {
		return nil, err
	}
	out := make(map[string]vehicle.MonitorStatus, len(snap.Monitors))
	for m, status := range snap.Monitors {
		out[vehicle.Monitor(m).String()] = status
	}
	return out, nil
}

// ResetReadiness resets every SUPPORTED_COMPLETE monitor back to
// SUPPORTED_INCOMPLETE (control_api.py's readiness/reset route). The
// readiness monitor set lives on the shared vehicle model, not per ECU, so
// this takes no ECU name and always applies vehicle-wide.
func (s *Surface) ResetReadiness() error {
	a, err := s.engine()
	if err != nil {
		return err
	}
	a.ResetReadiness()
	return nil
}

// ActuatorControl drives one UDS actuator DID on ecuName, retrying on NRC
// 0x21 (busyRepeatRequest) and 0x78 (responsePending) with bounded
// backoff (github.com/avast/retry-go/v4, SPEC_FULL §4.7), replacing the
// teacher's hand-rolled udsclient retry loop for this call path.
func (s *Surface) ActuatorControl(ctx context.Context, ecuName string, did uint16, pct float64) error {
	a, err := s.find(ecuName)
	if err != nil {
		return err
	}

	resp, err := retry.DoWithData(func() ([]byte, error) {
		r := a.ActuatorControl(did, pct)
		if len(r) >= 3 && r[0] == 0x7F && (r[2] == 0x21 || r[2] == 0x78) {
			return nil, errors.Errorf("nrc 0x%02X, retrying", r[2])
		}
		return r, nil
	},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(20*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
	)
	if err != nil {
		return errors.Wrap(err, "actuator control")
	}
	if len(resp) >= 3 && resp[0] == 0x7F {
		return errors.Wrapf(ErrConditionNotMet, "actuator control rejected: nrc 0x%02X", resp[2])
	}
	return nil
}
