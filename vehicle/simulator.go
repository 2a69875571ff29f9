package vehicle

import (
	"math"
	"sync"
	"time"
)

// Params are the profile-configured tuning values spec §6 calls out
// ("sensors.{rpm_idle, rpm_max, coolant_temp_normal, fuel_capacity, …}").
type Params struct {
	RPMIdle        float64
	RPMMax         float64
	CoolantNormalC float64
	FuelCapacityL  float64
}

func DefaultParams() Params {
	return Params{RPMIdle: 750, RPMMax: 6000, CoolantNormalC: 90, FuelCapacityL: 60}
}

const (
	ambientTempC     = 20.0
	crankMinDuration = 500 * time.Millisecond
	crankMaxDuration = 2 * time.Second
	maxTickStep      = 100 * time.Millisecond // spec §4.4: bounded steps, ≤100ms
)

// monitorBudget is the elapsed-condition threshold a readiness monitor must
// accumulate before flipping SUPPORTED_INCOMPLETE -> SUPPORTED_COMPLETE.
// Values are this project's documented resolution of spec §9's Open
// Question #1, grounded on original_source's vehicle_simulator.py
// thresholds (misfire/fuel-system/components/O2/catalyst/evap/EGR) plus two
// additional monitors (secondary air, A/C refrigerant) spec's eleven-entry
// set includes but the source's narrower monitor list did not model.
type monitorBudget struct {
	runtimeS   float64 // cumulative seconds engine must have been RUNNING
	cruiseS    float64 // cumulative seconds at cruise (RUNNING, speed > 20 km/h)
	idleS      float64 // cumulative seconds at idle (RUNNING, speed == 0)
	minCoolant float64 // °C gate, 0 = no gate
}

var monitorBudgets = [monitorCount]monitorBudget{
	MonitorMisfire:        {runtimeS: 60},
	MonitorFuelSystem:     {runtimeS: 30, minCoolant: 70},
	MonitorComponents:     {runtimeS: 10},
	MonitorCatalyst:       {cruiseS: 120},
	MonitorHeatedCatalyst: {cruiseS: 120},
	MonitorEvap:           {cruiseS: 60, idleS: 30},
	MonitorSecondaryAir:   {runtimeS: 50},
	MonitorACRefrigerant:  {runtimeS: 90},
	MonitorO2Sensor:       {runtimeS: 45, minCoolant: 80},
	MonitorO2Heater:       {runtimeS: 45, minCoolant: 80},
	MonitorEGR:            {cruiseS: 180},
}

// DTCEvaluator lets the tick task drive each registered ECU's DTC manager
// (spec §4.4 steps 6-7) without the vehicle package importing the dtc
// package — dtc.Manager implements this interface instead.
type DTCEvaluator interface {
	EvaluateTick(snapshot Snapshot, dt time.Duration) (milOn bool)
}

// Simulator is the single process-wide, mutex-guarded physics model. The
// tick task is its sole writer; readers take a value-type Snapshot copy
// (spec §3 Ownership, §9).
type Simulator struct {
	mu     sync.RWMutex
	snap   Snapshot
	params Params

	accumRuntime    [monitorCount]float64
	accumCruise     [monitorCount]float64
	accumIdle       [monitorCount]float64
	crankElapsed    time.Duration
	commandedIgn    IgnitionState
	commandedThrot  float64
	runtimeAccumS   float64

	evaluators []DTCEvaluator
}

func NewSimulator(params Params) *Simulator {
	s := &Simulator{params: params}
	s.snap.CoolantTempC = ambientTempC
	s.snap.IntakeTempC = ambientTempC
	s.snap.FuelLevelPct = 100
	s.snap.BatteryVoltage = 12.6
	for m := range s.snap.Monitors {
		s.snap.Monitors[m] = SupportedIncomplete
	}
	return s
}

func (s *Simulator) RegisterEvaluator(e DTCEvaluator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluators = append(s.evaluators, e)
}

// Snapshot returns a value-type copy taken under the read lock.
func (s *Simulator) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Simulator) SetIgnition(state IgnitionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commandedIgn = state
	s.snap.Ignition = state
	if state == IgnitionOff {
		s.snap.Engine = EngineOff
		s.snap.RPM = 0
		s.crankElapsed = 0
	}
}

func (s *Simulator) StartEngine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Ignition != IgnitionOn && s.snap.Ignition != IgnitionStart {
		s.snap.Ignition = IgnitionStart
		s.commandedIgn = IgnitionStart
	}
	if s.snap.Engine == EngineOff {
		s.snap.Engine = EngineCranking
		s.crankElapsed = 0
	}
}

func (s *Simulator) StopEngine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Engine = EngineOff
	s.snap.RPM = 0
	s.crankElapsed = 0
}

func (s *Simulator) SetThrottle(pct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commandedThrot = clamp(pct, 0, 100)
	s.snap.ThrottlePct = s.commandedThrot
}

// SetVehicleParams is the control-surface direct-override hook
// (set_vehicle_params), applied immediately rather than slewed toward.
func (s *Simulator) SetVehicleParams(rpm, speed, throttle *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rpm != nil {
		s.snap.RPM = clamp(*rpm, 0, 16383)
	}
	if speed != nil {
		s.snap.SpeedKPH = clamp(*speed, 0, 255)
	}
	if throttle != nil {
		s.commandedThrot = clamp(*throttle, 0, 100)
		s.snap.ThrottlePct = s.commandedThrot
	}
}

func (s *Simulator) SetMIL(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.MIL = on
}

// Tick advances the simulator by dt, clamped to spec §4.4's bounded step.
func (s *Simulator) Tick(dt time.Duration) {
	if dt > maxTickStep {
		dt = maxTickStep
	}
	s.mu.Lock()
	dtS := dt.Seconds()

	s.advanceEngineState(dtS)
	s.updateRPMAndLoad(dtS)
	s.updateCoolant(dtS)
	s.updateSpeedAndDistance(dtS)
	s.updateFuelTrimAndTiming(dtS)
	s.advanceReadiness(dtS)

	if s.snap.Engine == EngineRunning {
		// runtimeAccumS holds the accumulated RUNNING time in seconds.
		s.snap.RuntimeS = uint32(math.Min(s.runtimeAccumS, math.MaxUint32))
	}
	snap := s.snap
	evaluators := append([]DTCEvaluator(nil), s.evaluators...)
	s.mu.Unlock()

	milOn := false
	for _, e := range evaluators {
		if e.EvaluateTick(snap, dt) {
			milOn = true
		}
	}
	s.SetMIL(milOn)
	if milOn {
		s.mu.Lock()
		if s.snap.DistanceMILOn < math.MaxUint32 {
			s.snap.DistanceMILOn++
		}
		s.mu.Unlock()
	}
}

func (s *Simulator) advanceEngineState(dtS float64) {
	switch s.snap.Engine {
	case EngineCranking:
		s.crankElapsed += time.Duration(dtS * float64(time.Second))
		if s.crankElapsed >= crankMinDuration {
			s.snap.Engine = EngineRunning
			s.crankElapsed = 0
		} else if s.crankElapsed >= crankMaxDuration {
			s.snap.Engine = EngineOff
			s.crankElapsed = 0
		}
	case EngineRunning:
		if s.snap.Ignition == IgnitionOff {
			s.snap.Engine = EngineOff
		}
	}
}

func (s *Simulator) updateRPMAndLoad(dtS float64) {
	target := 0.0
	if s.snap.Engine == EngineRunning {
		target = s.params.RPMIdle + (s.params.RPMMax-s.params.RPMIdle)*(s.commandedThrot/100)
	} else if s.snap.Engine == EngineCranking {
		target = 250
	}
	s.snap.RPM = slew(s.snap.RPM, target, 2000*dtS)
	if s.snap.Engine != EngineRunning && s.snap.Engine != EngineStalling {
		s.snap.RPM = 0
	}

	// MAF/load are monotonic in RPM and throttle, per spec §3 invariant.
	s.snap.EngineLoad = clamp(s.commandedThrot*0.6+s.snap.RPM/s.params.RPMMax*40, 0, 100)
	s.snap.MAF = clamp((s.snap.RPM/1000)*(1+s.snap.EngineLoad/100)*2.5, 0, 655.35)
}

func (s *Simulator) updateCoolant(dtS float64) {
	target := ambientTempC
	if s.snap.Engine == EngineRunning || s.snap.Engine == EngineCranking {
		target = s.params.CoolantNormalC
	}
	s.snap.CoolantTempC = slew(s.snap.CoolantTempC, target, 2*dtS)
	s.snap.IntakeTempC = slew(s.snap.IntakeTempC, ambientTempC+s.snap.EngineLoad/10, 1*dtS)
}

func (s *Simulator) updateSpeedAndDistance(dtS float64) {
	target := 0.0
	if s.snap.Engine == EngineRunning {
		target = s.commandedThrot * 2.0
	}
	s.snap.SpeedKPH = slew(s.snap.SpeedKPH, target, 20*dtS)
	if s.snap.SpeedKPH < 0 {
		s.snap.SpeedKPH = 0
	}
}

// updateFuelTrimAndTiming models PID 0x06/0x07/0x0E's underlying sensors
// (short/long-term fuel trim, timing advance), grounded on
// vehicle_simulator.py's _update_running_state: timing advance rises with
// RPM and falls with load, fuel trim drifts to correct a simulated O2
// lambda oscillation around stoichiometric. Frozen while the engine isn't
// running, matching the source only updating these inside that branch.
func (s *Simulator) updateFuelTrimAndTiming(dtS float64) {
	if s.snap.Engine != EngineRunning || s.params.RPMMax <= 0 {
		return
	}
	s.runtimeAccumS += dtS

	rpmAdvance := (s.snap.RPM / s.params.RPMMax) * 30
	loadReduction := (100 - s.snap.EngineLoad) / 100 * 10
	s.snap.TimingAdvanceDeg = rpmAdvance + loadReduction

	o2Voltage := 0.45 + math.Sin(s.runtimeAccumS*2)*0.05
	switch {
	case o2Voltage < 0.4:
		s.snap.ShortTermFuelTrimPct = math.Min(25, s.snap.ShortTermFuelTrimPct+dtS*2)
	case o2Voltage > 0.5:
		s.snap.ShortTermFuelTrimPct = math.Max(-25, s.snap.ShortTermFuelTrimPct-dtS*2)
	}
	s.snap.LongTermFuelTrimPct += (s.snap.ShortTermFuelTrimPct - s.snap.LongTermFuelTrimPct) * dtS * 0.1
}

func (s *Simulator) advanceReadiness(dtS float64) {
	running := s.snap.Engine == EngineRunning
	cruising := running && s.snap.SpeedKPH > 20
	idling := running && s.snap.SpeedKPH == 0

	for m := Monitor(0); m < monitorCount; m++ {
		if s.snap.Monitors[m] != SupportedIncomplete {
			continue
		}
		budget := monitorBudgets[m]
		if budget.minCoolant > 0 && s.snap.CoolantTempC < budget.minCoolant {
			continue
		}
		if running && budget.runtimeS > 0 {
			s.accumRuntime[m] += dtS
		}
		if cruising && budget.cruiseS > 0 {
			s.accumCruise[m] += dtS
		}
		if idling && budget.idleS > 0 {
			s.accumIdle[m] += dtS
		}
		if s.accumRuntime[m] >= budget.runtimeS &&
			s.accumCruise[m] >= budget.cruiseS &&
			s.accumIdle[m] >= budget.idleS {
			s.snap.Monitors[m] = SupportedComplete
		}
	}
}

// ResetReadiness resets every SUPPORTED_COMPLETE monitor back to
// SUPPORTED_INCOMPLETE, per spec §3/§8 (clear-DTC operation).
func (s *Simulator) ResetReadiness() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for m := range s.snap.Monitors {
		if s.snap.Monitors[m] == SupportedComplete {
			s.snap.Monitors[m] = SupportedIncomplete
		}
		s.accumRuntime[m] = 0
		s.accumCruise[m] = 0
		s.accumIdle[m] = 0
	}
}

func slew(current, target, maxDelta float64) float64 {
	if maxDelta <= 0 {
		return target
	}
	if current < target {
		return math.Min(current+maxDelta, target)
	}
	if current > target {
		return math.Max(current-maxDelta, target)
	}
	return current
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
