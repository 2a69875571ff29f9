package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/RobertSloan22/Simulated-OBD2-UDS/bus"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/canbus"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/control"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/profile"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/vehicle"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func TestPrintStatus_WritesSnapshotLine(t *testing.T) {
	l := logrus.New()
	l.SetOutput(bytes.NewBuffer(nil))
	medium := canbus.NewVirtualBus()
	sim := vehicle.NewSimulator(vehicle.DefaultParams())
	coord := bus.NewCoordinator(medium, sim, logrus.NewEntry(l))
	coord.RegisterDefaultFleet(context.Background(), profile.Default())

	surface := control.New(coord)
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	printStatus(cmd, surface)

	if out.Len() == 0 {
		t.Fatal("printStatus wrote nothing")
	}
}
