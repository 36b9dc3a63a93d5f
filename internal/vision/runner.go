package vision

import (
	"context"
	"time"

	"github.com/banshee-data/drivecoach/internal/fsutil"
	"github.com/banshee-data/drivecoach/internal/lane"
	"github.com/banshee-data/drivecoach/internal/monitoring"
	"github.com/banshee-data/drivecoach/internal/pipeline"
	"github.com/banshee-data/drivecoach/internal/timeutil"
)

// ProgressLogInterval bounds how often a Runner without its own progress
// callback logs extraction progress.
const ProgressLogInterval = 5 * time.Second

// Runner runs extraction followed by the offset stage for one session.
type Runner struct {
	Options Options
	FS      fsutil.FileSystem
}

// NewRunner returns a Runner writing through the OS filesystem.
func NewRunner(opts Options) *Runner {
	return &Runner{Options: opts, FS: fsutil.OSFileSystem{}}
}

// Run implements pipeline.Runner.
func (r *Runner) Run(ctx context.Context, a pipeline.Artifacts) (pipeline.Result, error) {
	if err := a.Validate(); err != nil {
		return pipeline.Result{}, err
	}

	opts := r.Options
	opts.AnnotatedPath = a.Annotated
	opts.Intensity = a.IntensityCSV != ""
	if opts.Progress == nil {
		clock := opts.Clock
		if clock == nil {
			clock = timeutil.RealClock{}
		}
		opts.Clock = clock
		opts.Progress = monitoring.Throttle(clock, ProgressLogInterval, func(p monitoring.Progress) {
			monitoring.Logf("pipeline: %s: %s", a.Dir, p)
		})
	}

	store := lane.NewRecordStore(r.FS, a.Records)
	ext, err := Extract(ctx, a.Video, store, opts)
	if err != nil {
		return pipeline.Result{}, err
	}

	rows, err := pipeline.WriteLaneCSV(r.FS, store, ext.Meta, a.LaneCSV)
	if err != nil {
		return pipeline.Result{}, err
	}
	if a.IntensityCSV != "" {
		if err := pipeline.WriteIntensityCSV(r.FS, ext.Meta.FPS, ext.Intensity, a.IntensityCSV); err != nil {
			return pipeline.Result{}, err
		}
	}

	monitoring.Logf("pipeline: %s: %d offset rows from %d frames", a.Dir, rows, ext.Meta.Frames)
	return pipeline.Result{Meta: ext.Meta, Detections: ext.Detections, OffsetRows: rows}, nil
}

var _ pipeline.Runner = (*Runner)(nil)
