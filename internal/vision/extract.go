package vision

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/banshee-data/drivecoach/internal/config"
	"github.com/banshee-data/drivecoach/internal/lane"
	"github.com/banshee-data/drivecoach/internal/monitoring"
	"github.com/banshee-data/drivecoach/internal/timeutil"
)

// DefaultCodec is the FourCC used for annotated output.
const DefaultCodec = "mp4v"

// Options configures an extraction run.
type Options struct {
	Detector      DetectorConfig
	Policy        lane.Policy
	LineThickness int

	// AnnotatedPath receives the input frames with fitted lines drawn on.
	// Empty disables the annotated video.
	AnnotatedPath string
	Codec         string

	// Intensity records the mean grayscale value of every frame.
	Intensity bool

	Progress monitoring.ProgressFunc
	Clock    timeutil.Clock
}

// OptionsFrom builds extraction options from a pipeline config.
func OptionsFrom(c *config.PipelineConfig) (Options, error) {
	policy, err := lane.ParsePolicy(c.GetRecordPolicy())
	if err != nil {
		return Options{}, err
	}
	return Options{
		Detector:      DetectorConfigFrom(c),
		Policy:        policy,
		LineThickness: c.GetLineThickness(),
		Codec:         DefaultCodec,
	}, nil
}

// Result summarises an extraction run.
type Result struct {
	Meta       lane.VideoMeta
	Detections int       // frames with at least one lane line
	Intensity  []float64 // per frame, when Options.Intensity is set
}

// Extract decodes videoPath frame by frame, writes a lane record for every
// frame with a detection into records and, after the last frame, the
// meta.json sidecar. Only an unreadable source or an output write failure
// aborts the run; frames without usable geometry simply get no record.
func Extract(ctx context.Context, videoPath string, records *lane.RecordStore, opts Options) (Result, error) {
	vc, err := gocv.VideoCaptureFile(videoPath)
	if err != nil {
		return Result{}, unreadable(videoPath, "%v", err)
	}
	defer vc.Close()
	if !vc.IsOpened() {
		return Result{}, unreadable(videoPath, "cannot open")
	}

	fps := vc.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		return Result{}, unreadable(videoPath, "invalid frame rate %v", fps)
	}
	total := int(vc.Get(gocv.VideoCaptureFrameCount))
	if total < 0 {
		total = 0
	}

	if err := records.Init(); err != nil {
		return Result{}, err
	}

	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	codec := opts.Codec
	if codec == "" {
		codec = DefaultCodec
	}

	det := NewDetector(opts.Detector)
	defer det.Close()

	img := gocv.NewMat()
	defer img.Close()

	var writer *gocv.VideoWriter
	defer func() {
		if writer != nil {
			writer.Close()
		}
	}()

	res := Result{Meta: lane.VideoMeta{FPS: fps}}
	start := clock.Now()
	frame := 0
	for ; ; frame++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if ok := vc.Read(&img); !ok || img.Empty() {
			break
		}
		if frame == 0 {
			res.Meta.Width = img.Cols()
			res.Meta.Height = img.Rows()
			if opts.AnnotatedPath != "" {
				writer, err = gocv.VideoWriterFile(opts.AnnotatedPath, codec, fps, img.Cols(), img.Rows(), true)
				if err != nil {
					return res, fmt.Errorf("open annotated output %s: %w", opts.AnnotatedPath, err)
				}
			}
		}

		rec := det.Detect(img).Record(frame, opts.Policy)
		if err := records.Put(rec); err != nil {
			return res, err
		}
		if !rec.Empty() {
			res.Detections++
		}
		if opts.Intensity {
			res.Intensity = append(res.Intensity, det.Intensity())
		}

		if writer != nil {
			Annotate(&img, rec.Lines, opts.LineThickness)
			if err := writer.Write(img); err != nil {
				return res, fmt.Errorf("write annotated frame %d: %w", frame, err)
			}
		}

		if opts.Progress != nil {
			t := total
			if t < frame+1 {
				t = 0
			}
			opts.Progress(monitoring.Progress{Done: frame + 1, Total: t, Elapsed: clock.Since(start)})
		}
	}

	if frame == 0 {
		return res, unreadable(videoPath, "no decodable frames")
	}
	res.Meta.Frames = frame
	if opts.Progress != nil {
		opts.Progress(monitoring.Progress{Done: frame, Total: frame, Elapsed: clock.Since(start), Final: true})
	}
	if err := records.PutMeta(res.Meta); err != nil {
		return res, fmt.Errorf("write %s: %w", lane.MetaFileName, err)
	}
	monitoring.Logf("vision: %s: %d frames, %d with lanes", videoPath, frame, res.Detections)
	return res, nil
}

// Probe returns the dimensions, frame rate and frame count of a video. When
// the container does not report a frame count the frames are decoded and
// counted.
func Probe(videoPath string) (lane.VideoMeta, error) {
	vc, err := gocv.VideoCaptureFile(videoPath)
	if err != nil {
		return lane.VideoMeta{}, unreadable(videoPath, "%v", err)
	}
	defer vc.Close()
	if !vc.IsOpened() {
		return lane.VideoMeta{}, unreadable(videoPath, "cannot open")
	}

	meta := lane.VideoMeta{
		Width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
		FPS:    vc.Get(gocv.VideoCaptureFPS),
		Frames: int(vc.Get(gocv.VideoCaptureFrameCount)),
	}
	if meta.Frames <= 0 {
		img := gocv.NewMat()
		defer img.Close()
		n := 0
		for vc.Read(&img) && !img.Empty() {
			n++
		}
		meta.Frames = n
	}
	if err := meta.Validate(); err != nil {
		return meta, unreadable(videoPath, "%v", err)
	}
	return meta, nil
}
