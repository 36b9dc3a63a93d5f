// Package pipeline chains the batch stages for one session directory:
// frame extraction, then lane offsets. The OpenCV-backed extraction stage is
// supplied as a Runner by package vision so callers here stay cgo-free.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/drivecoach/internal/align"
	"github.com/banshee-data/drivecoach/internal/fsutil"
	"github.com/banshee-data/drivecoach/internal/lane"
	"github.com/banshee-data/drivecoach/internal/security"
)

// Artifact names inside a session directory.
const (
	VideoFile        = "drive.mp4"
	AnnotatedFile    = "annotated.mp4"
	RecordsDir       = "lanes"
	LaneCSVFile      = "lane.csv"
	IntensityCSVFile = "intensity.csv"
)

// Artifacts are the input and output paths of one pipeline run.
type Artifacts struct {
	Dir          string
	Video        string
	Annotated    string
	Records      string
	LaneCSV      string
	IntensityCSV string // empty disables the intensity series
}

// NewArtifacts lays out the standard artifact names under dir.
func NewArtifacts(dir string) Artifacts {
	return Artifacts{
		Dir:          dir,
		Video:        filepath.Join(dir, VideoFile),
		Annotated:    filepath.Join(dir, AnnotatedFile),
		Records:      filepath.Join(dir, RecordsDir),
		LaneCSV:      filepath.Join(dir, LaneCSVFile),
		IntensityCSV: filepath.Join(dir, IntensityCSVFile),
	}
}

// Validate checks that every artifact stays inside Dir.
func (a Artifacts) Validate() error {
	for _, p := range []string{a.Video, a.Annotated, a.Records, a.LaneCSV, a.IntensityCSV} {
		if p == "" {
			continue
		}
		if err := security.ValidatePathWithinDirectory(p, a.Dir); err != nil {
			return err
		}
	}
	return nil
}

// Result summarises a completed run.
type Result struct {
	Meta       lane.VideoMeta
	Detections int
	OffsetRows int
}

// Runner executes the pipeline for one set of artifacts.
type Runner interface {
	Run(ctx context.Context, a Artifacts) (Result, error)
}

// WriteLaneCSV computes lane offsets from records and writes them to path.
// It returns the number of rows written.
func WriteLaneCSV(fsys fsutil.FileSystem, records lane.RecordSource, meta lane.VideoMeta, path string) (int, error) {
	samples, err := lane.ComputeOffsets(records, meta)
	if err != nil {
		return 0, err
	}
	var buf bytes.Buffer
	if err := lane.WriteOffsetsCSV(&buf, samples); err != nil {
		return 0, err
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return len(samples), nil
}

// WriteIntensityCSV writes the per-frame intensity series to path.
func WriteIntensityCSV(fsys fsutil.FileSystem, fps float64, values []float64, path string) error {
	var buf bytes.Buffer
	if err := align.WriteIntensityCSV(&buf, fps, values); err != nil {
		return err
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
