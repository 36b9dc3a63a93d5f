// Command drivejoin maps lane offsets onto the telemetry clock using a sync
// descriptor and writes one row per lane sample with its nearest telemetry
// metrics.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/drivecoach/internal/align"
	"github.com/banshee-data/drivecoach/internal/config"
	"github.com/banshee-data/drivecoach/internal/lane"
	"github.com/banshee-data/drivecoach/internal/telemetry"
	"github.com/banshee-data/drivecoach/internal/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("drivejoin: %v", err)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("drivejoin", flag.ContinueOnError)
	configPath := fs.String("config", "", "Pipeline tuning config (.json)")
	tolerance := fs.Duration("tolerance", 0, "Max distance to the nearest telemetry sample (default from config)")
	showVersion := fs.Bool("version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: drivejoin [flags] <lane.csv> <metrics.csv> <sync.json> <joined.csv>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String("drivejoin"))
		return nil
	}
	if fs.NArg() != 4 {
		fs.Usage()
		return fmt.Errorf("expected 4 arguments, got %d", fs.NArg())
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		return err
	}
	if *tolerance <= 0 {
		*tolerance = cfg.GetJoinTolerance()
	}

	var (
		lanes   []lane.OffsetSample
		metrics []telemetry.Metrics
		desc    align.Descriptor
	)
	if err := readFile(fs.Arg(0), func(r io.Reader) (err error) {
		lanes, err = lane.ReadOffsetsCSV(r)
		return err
	}); err != nil {
		return err
	}
	if err := readFile(fs.Arg(1), func(r io.Reader) (err error) {
		metrics, err = telemetry.ReadMetricsCSV(r)
		return err
	}); err != nil {
		return err
	}
	if err := readFile(fs.Arg(2), func(r io.Reader) (err error) {
		desc, err = align.ReadDescriptor(r)
		return err
	}); err != nil {
		return err
	}

	rows := align.Join(lanes, metrics, desc, *tolerance)

	out, err := os.Create(fs.Arg(3))
	if err != nil {
		return err
	}
	if err := align.WriteJoinedCSV(out, rows); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%d/%d lane samples joined within %v\n", len(rows), len(lanes), *tolerance)
	fmt.Fprintf(stdout, "joined csv: %s\n", fs.Arg(3))
	return nil
}

func readFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
