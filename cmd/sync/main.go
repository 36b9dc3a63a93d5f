// Command sync finds the first threshold-crossing spike in the telemetry
// brake channel and in a video-derived series, and writes the clock offset
// between them as a JSON descriptor.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/drivecoach/internal/align"
	"github.com/banshee-data/drivecoach/internal/config"
	"github.com/banshee-data/drivecoach/internal/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("sync: %v", err)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	configPath := fs.String("config", "", "Pipeline tuning config (.json)")
	primaryCol := fs.String("primary-column", "brake", "Spike column in the telemetry CSV")
	secondaryCol := fs.String("secondary-column", "intensity", "Spike column in the secondary CSV")
	timestampCol := fs.String("timestamp-column", "timestamp", "Timestamp column (seconds) in both CSVs")
	primaryThreshold := fs.Float64("primary-threshold", 0, "Telemetry spike threshold (default from config)")
	secondaryThreshold := fs.Float64("secondary-threshold", 0, "Secondary spike threshold (default from config)")
	showVersion := fs.Bool("version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: sync [flags] <telemetry.csv> <secondary.csv> <sync.json>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String("sync"))
		return nil
	}
	if fs.NArg() != 3 {
		fs.Usage()
		return fmt.Errorf("expected 3 arguments, got %d", fs.NArg())
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		return err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["primary-threshold"] {
		*primaryThreshold = cfg.GetBrakeThreshold()
	}
	if !set["secondary-threshold"] {
		*secondaryThreshold = cfg.GetIntensityThreshold()
	}

	primary, err := readSeries(fs.Arg(0), *timestampCol, *primaryCol)
	if err != nil {
		return err
	}
	secondary, err := readSeries(fs.Arg(1), *timestampCol, *secondaryCol)
	if err != nil {
		return err
	}

	d, err := align.Synchronize(primary, *primaryThreshold, secondary, *secondaryThreshold)
	if err != nil {
		return err
	}

	out, err := os.Create(fs.Arg(2))
	if err != nil {
		return err
	}
	if err := align.WriteDescriptor(out, d); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "t0=%g offset=%g\n", d.T0, d.Offset)
	fmt.Fprintf(stdout, "descriptor: %s\n", fs.Arg(2))
	return nil
}

func readSeries(path, timestampCol, valueCol string) (align.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return align.Series{}, err
	}
	defer f.Close()
	return align.ReadSeriesCSV(f, path, timestampCol, valueCol)
}
