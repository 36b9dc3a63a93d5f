// Command telemetry-log captures live vehicle telemetry from a serial
// source (or a replayed fixture in dev mode) into a telemetry CSV until
// interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/drivecoach/internal/config"
	"github.com/banshee-data/drivecoach/internal/telemetry"
	"github.com/banshee-data/drivecoach/internal/timeutil"
	"github.com/banshee-data/drivecoach/internal/units"
	"github.com/banshee-data/drivecoach/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, timeutil.RealClock{}); err != nil {
		log.Fatalf("telemetry-log: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, clock timeutil.Clock) error {
	fs := flag.NewFlagSet("telemetry-log", flag.ContinueOnError)
	configPath := fs.String("config", "", "Pipeline tuning config (.json)")
	devMode := fs.Bool("dev", false, "Replay -fixture instead of reading the serial port")
	fixture := fs.String("fixture", "", "Telemetry CSV replayed in dev mode")
	port := fs.String("port", "/dev/ttyUSB0", "Serial port to read (ignored in dev mode)")
	baud := fs.Int("baud", 115200, "Serial baud rate")
	speedUnits := fs.String("speed-units", units.KMPH, "Unit of the speed field on the serial line: "+units.GetValidUnitsString())
	quiet := fs.Bool("quiet", false, "Suppress the heartbeat line")
	showVersion := fs.Bool("version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: telemetry-log [flags] [telemetry.csv]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String("telemetry-log"))
		return nil
	}
	outPath := "telemetry.csv"
	if fs.NArg() > 1 {
		fs.Usage()
		return fmt.Errorf("expected at most 1 argument, got %d", fs.NArg())
	} else if fs.NArg() == 1 {
		outPath = fs.Arg(0)
	}
	if !units.IsValid(*speedUnits) {
		return fmt.Errorf("invalid -speed-units %q: valid units are %s", *speedUnits, units.GetValidUnitsString())
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		return err
	}

	if *devMode && *fixture == "" {
		return fmt.Errorf("-fixture is required with -dev")
	}

	var src telemetry.Source
	if *devMode {
		src, err = telemetry.OpenReplay(*fixture)
	} else {
		src, err = telemetry.OpenSerial(*port, telemetry.PortOptions{BaudRate: *baud}, *speedUnits)
	}
	if errors.Is(err, telemetry.ErrSourceUnavailable) {
		return fmt.Errorf("%w: make sure the simulator is running and streaming telemetry", err)
	}
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()
	w, err := telemetry.NewWriter(out)
	if err != nil {
		return err
	}

	logger := &telemetry.Logger{
		Source:            src,
		Writer:            w,
		Clock:             clock,
		Interval:          cfg.GetTelemetryInterval(),
		HeartbeatInterval: cfg.GetHeartbeatInterval(),
	}
	if !*quiet {
		logger.Heartbeat = func(s telemetry.Sample) {
			fmt.Fprintf(stdout, "speed %6.1f km/h  throttle %5.2f  brake %5.1f\n", s.SpeedKMH, s.Throttle, s.Brake)
		}
	}

	fmt.Fprintf(stdout, "logging telemetry at %.0f Hz to %s (ctrl-c to stop)\n", cfg.GetTelemetryRateHz(), outPath)
	if err := logger.Run(ctx); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d samples written to %s\n", logger.Rows(), outPath)
	return nil
}
