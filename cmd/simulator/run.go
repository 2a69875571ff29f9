package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RobertSloan22/Simulated-OBD2-UDS/bus"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/canbus"
	simconfig "github.com/RobertSloan22/Simulated-OBD2-UDS/config"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/control"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/dtc"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/ecu"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/isotp"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/profile"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/simlog"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/udsclient"
	"github.com/RobertSloan22/Simulated-OBD2-UDS/vehicle"
)

var (
	injectCodes  []string
	runDuration  time.Duration
	statusPeriod = 2 * time.Second
	selfTest     bool
	printConfig  bool
)

func init() {
	rootCmd.Flags().StringSliceVar(&injectCodes, "inject-dtc", nil, "DTC codes to inject into the engine ECU at startup")
	rootCmd.Flags().DurationVar(&runDuration, "duration", 0, "stop after this long (0 = run until interrupted)")
	rootCmd.Flags().BoolVar(&selfTest, "selftest", false, "send a TesterPresent probe to the engine ECU over isotp.Session at startup")
	rootCmd.Flags().BoolVar(&printConfig, "print-config", false, "print the resolved run-time configuration as YAML and exit")
}

func runSimulator(cmd *cobra.Command, args []string) error {
	rt, err := simconfig.Load(viper.GetViper(), configFile)
	if err != nil {
		return err
	}
	if lvl, parseErr := logrus.ParseLevel(rt.LogLevel); parseErr == nil {
		simlog.Logger.SetLevel(lvl)
	}
	if rt.LogDir != "" {
		if stop, rotateErr := simlog.Rotate(rt.LogDir, time.Hour); rotateErr == nil {
			defer stop()
		}
	}

	if printConfig {
		out, dumpErr := simconfig.Dump(rt)
		if dumpErr != nil {
			return dumpErr
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	}

	prof := profile.Default()
	if rt.ProfilePath != "" {
		loaded, loadErr := profile.Load(rt.ProfilePath)
		if loadErr != nil {
			return loadErr
		}
		prof = loaded
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if runDuration > 0 {
		var durationCancel context.CancelFunc
		ctx, durationCancel = context.WithTimeout(ctx, runDuration)
		defer durationCancel()
	}
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		cancel()
	}()

	medium := canbus.NewVirtualBus()
	sim := vehicle.NewSimulator(vehicle.Params{
		RPMIdle:        prof.Sensors.RPMIdle,
		RPMMax:         prof.Sensors.RPMMax,
		CoolantNormalC: prof.Sensors.CoolantTempNormalC,
		FuelCapacityL:  prof.Sensors.FuelCapacityL,
	})

	log := simlog.Logger.WithField("component", "simulator")
	coord := bus.NewCoordinator(medium, sim, log)
	coord.RegisterDefaultFleet(ctx, prof)

	entries := make([]dtc.ProfileEntry, 0, len(prof.DTCs))
	for _, d := range prof.DTCs {
		code, parseErr := dtc.ParseCode(d.Code)
		if parseErr != nil {
			log.WithError(parseErr).WithField("code", d.Code).Warn("skipping invalid profile DTC entry")
			continue
		}
		entries = append(entries, dtc.ProfileEntry{
			Code: code, Description: d.Description, MILIlluminate: d.MILIlluminate, Probability: d.Probability,
		})
	}
	if engine := coord.ByName("engine"); engine != nil && len(entries) > 0 {
		engine.DTCManager().RegisterEntries(entries)
	}

	surface := control.New(coord)
	for _, code := range injectCodes {
		if err := surface.InjectDTC("engine", code, "injected at startup", true); err != nil {
			log.WithError(err).WithField("code", code).Warn("startup DTC injection failed")
		}
	}

	go printStatusLoop(ctx, cmd, surface)

	if selfTest {
		go runSelfTest(ctx, medium, log)
	}

	color.Cyan("simulator started: tick=%s fleet=%d", rt.TickInterval, len(coord.List()))
	err = coord.Run(ctx, rt.TickInterval)
	if err == context.Canceled || err == context.DeadlineExceeded {
		color.Cyan("simulator stopped")
		return nil
	}
	return err
}

// runSelfTest dials into the virtual bus as an independent tester and sends
// a TesterPresent probe to the engine ECU, exercising the udsclient path
// end to end against the same medium the fleet runs on.
func runSelfTest(ctx context.Context, medium canbus.Bus, log *logrus.Entry) {
	testerAddr := isotp.NewAddress(ecu.EngineIdentity.ResponseID, ecu.EngineIdentity.RequestID, 0)
	sess := isotp.NewSession(ctx, testerAddr, isotp.DefaultConfig(), medium, log.WithField("component", "selftest"))

	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	resp, err := udsclient.New(sess).Request(reqCtx, []byte{0x3E, 0x00})
	if err != nil {
		log.WithError(err).Warn("selftest: TesterPresent probe failed")
		return
	}
	log.WithField("response", fmt.Sprintf("% 02X", resp)).Info("selftest: TesterPresent probe succeeded")
}

func printStatusLoop(ctx context.Context, cmd *cobra.Command, surface *control.Surface) {
	t := time.NewTicker(statusPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			printStatus(cmd, surface)
		}
	}
}

func printStatus(cmd *cobra.Command, surface *control.Surface) {
	snap, err := surface.GetSnapshot()
	if err != nil {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "[%s] ignition=%s engine=%s rpm=%.0f speed=%.0fkm/h coolant=%.0fC\n",
		time.Now().Format("15:04:05"), snap.Ignition, snap.Engine, snap.RPM, snap.SpeedKPH, snap.CoolantTempC)

	byECU, err := surface.ListDTCs("", false)
	if err != nil {
		return
	}
	for ecuName, records := range byECU {
		for _, r := range records {
			line := fmt.Sprintf("  %-12s %s %-6s %s", ecuName, r.Code, r.State, r.Description)
			switch r.State {
			case dtc.Confirmed, dtc.Permanent:
				color.Red(line)
			case dtc.Pending:
				color.Yellow(line)
			default:
				fmt.Fprintln(out, line)
			}
		}
	}
	if snap.MIL {
		color.Red("  MIL: ON")
	} else {
		color.Green("  MIL: off")
	}
}
