package control

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RobertSloan22/Simulated-OBD2-UDS/bus"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/canbus"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/dtc"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/profile"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/vehicle"
)

func newTestSurface(t *testing.T) *Surface {
	t.Helper()
	l := logrus.New()
	l.SetOutput(bytes.NewBuffer(nil))
	medium := canbus.NewVirtualBus()
	sim := vehicle.NewSimulator(vehicle.DefaultParams())
	coord := bus.NewCoordinator(medium, sim, logrus.NewEntry(l))
	coord.RegisterDefaultFleet(context.Background(), profile.Default())
	return New(coord)
}

func TestSurface_InjectAndListAndClearDTCs(t *testing.T) {
	s := newTestSurface(t)

	if err := s.InjectDTC("engine", "P0300", "Random misfire", true); err != nil {
		t.Fatalf("InjectDTC: %v", err)
	}
	byECU, err := s.ListDTCs("engine", false)
	if err != nil {
		t.Fatalf("ListDTCs: %v", err)
	}
	if len(byECU["engine"]) != 1 || byECU["engine"][0].State != dtc.Confirmed {
		t.Fatalf("list = %+v, want one CONFIRMED P0300", byECU)
	}

	if err := s.ClearDTCs("engine"); err != nil {
		t.Fatalf("ClearDTCs: %v", err)
	}
	byECU, _ = s.ListDTCs("engine", false)
	if len(byECU["engine"]) != 0 {
		t.Errorf("after clear, list = %+v, want empty (non-history)", byECU)
	}
	byECU, _ = s.ListDTCs("engine", true)
	if len(byECU["engine"]) != 1 || byECU["engine"][0].State != dtc.History {
		t.Errorf("after clear with includeHistory, list = %+v, want one HISTORY record", byECU)
	}
}

func TestSurface_InjectDTC_UnknownECU(t *testing.T) {
	s := newTestSurface(t)
	err := s.InjectDTC("not-a-real-ecu", "P0300", "x", false)
	if !errors.Is(err, ErrECUNotFound) {
		t.Fatalf("err = %v, want wrapping ErrECUNotFound", err)
	}
}

func TestSurface_InjectDTC_InvalidCode(t *testing.T) {
	s := newTestSurface(t)
	err := s.InjectDTC("engine", "not-a-code", "x", false)
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("err = %v, want wrapping ErrInvalidCode", err)
	}
}

func TestSurface_ActuatorControl_RejectedWhenConditionsNotMet(t *testing.T) {
	s := newTestSurface(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := s.ActuatorControl(ctx, "engine", 0xF500, 50)
	if !errors.Is(err, ErrConditionNotMet) {
		t.Fatalf("err = %v, want wrapping ErrConditionNotMet", err)
	}
}

func TestSurface_EngineLifecycleAndSnapshot(t *testing.T) {
	s := newTestSurface(t)

	if err := s.SetIgnition(vehicle.IgnitionOn); err != nil {
		t.Fatalf("SetIgnition: %v", err)
	}
	if err := s.StartEngine(); err != nil {
		t.Fatalf("StartEngine: %v", err)
	}
	snap, err := s.GetSnapshot()
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snap.Engine != vehicle.EngineCranking {
		t.Errorf("engine state = %v, want CRANKING", snap.Engine)
	}

	if err := s.StopEngine(); err != nil {
		t.Fatalf("StopEngine: %v", err)
	}
	snap, _ = s.GetSnapshot()
	if snap.Engine != vehicle.EngineOff || snap.RPM != 0 {
		t.Errorf("after stop, snapshot = %+v, want OFF/0rpm", snap)
	}
}

func TestSurface_SetVehicleParams(t *testing.T) {
	s := newTestSurface(t)
	rpm := 3000.0
	if err := s.SetVehicleParams(&rpm, nil, nil); err != nil {
		t.Fatalf("SetVehicleParams: %v", err)
	}
	snap, _ := s.GetSnapshot()
	if snap.RPM != 3000 {
		t.Errorf("rpm = %v, want 3000", snap.RPM)
	}
}

func TestSurface_GetReadiness(t *testing.T) {
	s := newTestSurface(t)
	readiness, err := s.GetReadiness()
	if err != nil {
		t.Fatalf("GetReadiness: %v", err)
	}
	if status, ok := readiness["misfire"]; !ok || status != vehicle.SupportedIncomplete {
		t.Errorf("readiness[misfire] = %v, ok=%v, want SUPPORTED_INCOMPLETE", status, ok)
	}
}

func TestSurface_ActuatorControl(t *testing.T) {
	s := newTestSurface(t)
	if err := s.SetIgnition(vehicle.IgnitionOn); err != nil {
		t.Fatalf("SetIgnition: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.ActuatorControl(ctx, "engine", 0xF500, 50); err != nil {
		t.Fatalf("ActuatorControl: %v", err)
	}
	snap, _ := s.GetSnapshot()
	if snap.ThrottlePct < 49 || snap.ThrottlePct > 51 {
		t.Errorf("throttle after actuator control = %v, want ~50", snap.ThrottlePct)
	}
}
