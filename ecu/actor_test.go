package ecu

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/RobertSloan22/Simulated-OBD2-UDS/canbus"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/isotp"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/vehicle"
)

func testLogEntry() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(bytes.NewBuffer(nil))
	return logrus.NewEntry(l)
}

func newTestActor(t *testing.T, id Identity) *Actor {
	t.Helper()
	bus := canbus.NewVirtualBus()
	sim := vehicle.NewSimulator(vehicle.DefaultParams())
	return NewActor(context.Background(), id, bus, sim, 1, testLogEntry())
}

func TestActor_DispatchOBD_SupportedPIDsRequest(t *testing.T) {
	a := newTestActor(t, EngineIdentity)
	resp := a.dispatch(inboundRequest{payload: []byte{0x01, 0x00}, addrType: isotp.Physical})
	if len(resp) < 2 || resp[0] != 0x41 || resp[1] != 0x00 {
		t.Fatalf("mode01 pid00 dispatch = % X", resp)
	}
}

func TestActor_DispatchUDS_TesterPresentSuppressed(t *testing.T) {
	a := newTestActor(t, EngineIdentity)
	resp := a.dispatch(inboundRequest{payload: []byte{0x3E, 0x80}, addrType: isotp.Physical})
	if resp != nil {
		t.Errorf("suppressed tester present dispatch = % X, want nil", resp)
	}
}

func TestActor_DispatchOBD_UnsupportedECU_FunctionalDrops(t *testing.T) {
	a := newTestActor(t, TransmissionIdentity)
	resp := a.dispatch(inboundRequest{payload: []byte{0x01, 0x00}, addrType: isotp.Functional})
	if resp != nil {
		t.Errorf("OBD on non-OBD ECU via functional address = % X, want nil (dropped)", resp)
	}
}

func TestActor_DispatchOBD_UnsupportedECU_PhysicalNRC(t *testing.T) {
	a := newTestActor(t, TransmissionIdentity)
	resp := a.dispatch(inboundRequest{payload: []byte{0x01, 0x00}, addrType: isotp.Physical})
	want := []byte{0x7F, 0x01, 0x11}
	if !bytes.Equal(resp, want) {
		t.Errorf("OBD on non-OBD ECU via physical address = % X, want % X", resp, want)
	}
}

func TestActor_DispatchUnknownServiceClass(t *testing.T) {
	a := newTestActor(t, EngineIdentity)
	resp := a.dispatch(inboundRequest{payload: []byte{0xC0}, addrType: isotp.Physical})
	want := []byte{0x7F, 0xC0, 0x11}
	if !bytes.Equal(resp, want) {
		t.Errorf("out-of-range service = % X, want % X", resp, want)
	}
}

func TestActor_BacklogDropsOverflow(t *testing.T) {
	a := newTestActor(t, EngineIdentity)
	for i := 0; i < backlogDepth+2; i++ {
		if a.backlog.Len() < backlogDepth {
			a.backlog.Push(inboundRequest{payload: []byte{0x01, 0x00}})
		}
	}
	if got := a.backlog.Len(); got != backlogDepth {
		t.Errorf("backlog len = %d, want capped at %d", got, backlogDepth)
	}
}
