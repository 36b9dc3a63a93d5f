// Command lanedetect decodes a dashcam video, fits left/right lane lines on
// every frame and writes one lane record file per detected frame, plus an
// annotated copy of the video.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/drivecoach/internal/config"
	"github.com/banshee-data/drivecoach/internal/fsutil"
	"github.com/banshee-data/drivecoach/internal/lane"
	"github.com/banshee-data/drivecoach/internal/monitoring"
	"github.com/banshee-data/drivecoach/internal/pipeline"
	"github.com/banshee-data/drivecoach/internal/version"
	"github.com/banshee-data/drivecoach/internal/vision"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("lanedetect: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("lanedetect", flag.ContinueOnError)
	configPath := fs.String("config", "", "Pipeline tuning config (.json)")
	intensityPath := fs.String("intensity", "", "Also write the per-frame intensity series to this CSV")
	codec := fs.String("codec", vision.DefaultCodec, "FourCC codec for the annotated video")
	policy := fs.String("policy", "", "Lane record policy: both or last (default from config)")
	showVersion := fs.Bool("version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: lanedetect [flags] <video> <annotated-video> <records-dir>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String("lanedetect"))
		return nil
	}
	if fs.NArg() != 3 {
		fs.Usage()
		return fmt.Errorf("expected 3 arguments, got %d", fs.NArg())
	}
	videoPath, annotatedPath, recordsDir := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		return err
	}
	opts, err := vision.OptionsFrom(cfg)
	if err != nil {
		return err
	}
	if *policy != "" {
		if opts.Policy, err = lane.ParsePolicy(*policy); err != nil {
			return err
		}
	}
	opts.AnnotatedPath = annotatedPath
	opts.Codec = *codec
	opts.Intensity = *intensityPath != ""
	opts.Progress = monitoring.EveryN(cfg.GetProgressEvery(), func(p monitoring.Progress) {
		fmt.Fprintln(stdout, p.String())
	})

	fsys := fsutil.OSFileSystem{}
	res, err := vision.Extract(ctx, videoPath, lane.NewRecordStore(fsys, recordsDir), opts)
	if err != nil {
		return err
	}
	if *intensityPath != "" {
		if err := pipeline.WriteIntensityCSV(fsys, res.Meta.FPS, res.Intensity, *intensityPath); err != nil {
			return err
		}
	}

	fmt.Fprintf(stdout, "%d/%d frames with lane lines\n", res.Detections, res.Meta.Frames)
	fmt.Fprintf(stdout, "records: %s\nannotated: %s\n", recordsDir, annotatedPath)
	return nil
}
