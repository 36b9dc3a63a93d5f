// Command telemetry-metrics sorts a telemetry CSV by timestamp and appends
// finite-difference acceleration and jerk columns.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/drivecoach/internal/telemetry"
	"github.com/banshee-data/drivecoach/internal/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("telemetry-metrics: %v", err)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("telemetry-metrics", flag.ContinueOnError)
	showVersion := fs.Bool("version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: telemetry-metrics <telemetry.csv> <metrics.csv>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String("telemetry-metrics"))
		return nil
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return fmt.Errorf("expected 2 arguments, got %d", fs.NArg())
	}
	inPath, outPath := fs.Arg(0), fs.Arg(1)

	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()
	samples, err := telemetry.ReadCSV(in)
	if err != nil {
		return fmt.Errorf("%s: %w", inPath, err)
	}

	metrics := telemetry.Derive(samples)

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := telemetry.WriteMetricsCSV(out, metrics); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	missing := 0
	for _, m := range metrics {
		if m.Accel == nil {
			missing++
		}
	}
	fmt.Fprintf(stdout, "%d samples, %d without acceleration\n", len(metrics), missing)
	fmt.Fprintf(stdout, "metrics csv: %s\n", outPath)
	return nil
}
