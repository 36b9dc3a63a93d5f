// Package vision decodes dashcam video with OpenCV (gocv) and turns each
// frame into lane geometry.
//
// The per-frame pipeline is: grayscale, Canny edges, region-of-interest mask,
// probabilistic Hough segments, then slope classification and line fitting
// in package lane. Everything that touches a gocv.Mat lives here so the rest
// of the module builds and tests without OpenCV.
package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"gocv.io/x/gocv"

	"github.com/banshee-data/drivecoach/internal/config"
	"github.com/banshee-data/drivecoach/internal/lane"
)

// ErrUnreadableSource is returned when a video cannot be opened or yields no
// decodable frames.
var ErrUnreadableSource = errors.New("unreadable video source")

// DetectorConfig holds the edge and line detection parameters.
type DetectorConfig struct {
	ROI                []config.Vertex
	CannyLow           float64
	CannyHigh          float64
	HoughRho           float64
	HoughThetaDeg      float64
	HoughThreshold     int
	HoughMinLineLength float64
	HoughMaxLineGap    float64
	Lane               lane.Params
}

// DetectorConfigFrom resolves a pipeline config into detector parameters.
func DetectorConfigFrom(c *config.PipelineConfig) DetectorConfig {
	return DetectorConfig{
		ROI:                c.GetROIVertices(),
		CannyLow:           c.GetCannyLow(),
		CannyHigh:          c.GetCannyHigh(),
		HoughRho:           c.GetHoughRho(),
		HoughThetaDeg:      c.GetHoughThetaDeg(),
		HoughThreshold:     c.GetHoughThreshold(),
		HoughMinLineLength: c.GetHoughMinLineLength(),
		HoughMaxLineGap:    c.GetHoughMaxLineGap(),
		Lane: lane.Params{
			SlopeCutoff: c.GetSlopeCutoff(),
			TopFraction: c.GetLineTopFraction(),
		},
	}
}

// ROIPolygon scales fractional vertices to pixel coordinates.
func ROIPolygon(width, height int, vertices []config.Vertex) []image.Point {
	pts := make([]image.Point, len(vertices))
	for i, v := range vertices {
		pts[i] = image.Pt(int(v.X*float64(width)), int(v.Y*float64(height)))
	}
	return pts
}

// Detector runs the per-frame edge and line detection. It caches the ROI
// mask for the most recent frame size and must be closed.
type Detector struct {
	cfg DetectorConfig

	gray   gocv.Mat
	edges  gocv.Mat
	masked gocv.Mat
	lines  gocv.Mat

	mask     gocv.Mat
	maskSize image.Point
}

// NewDetector allocates the working buffers for cfg.
func NewDetector(cfg DetectorConfig) *Detector {
	return &Detector{
		cfg:    cfg,
		gray:   gocv.NewMat(),
		edges:  gocv.NewMat(),
		masked: gocv.NewMat(),
		lines:  gocv.NewMat(),
		mask:   gocv.NewMat(),
	}
}

// Close releases all of the detector's buffers, even when one fails.
func (d *Detector) Close() error {
	return closeAll(&d.gray, &d.edges, &d.masked, &d.lines, &d.mask)
}

func closeAll(closers ...io.Closer) error {
	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Detector) roiMask(width, height int) gocv.Mat {
	size := image.Pt(width, height)
	if size == d.maskSize && !d.mask.Empty() {
		return d.mask
	}
	d.mask.Close()
	d.mask = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8U)
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{ROIPolygon(width, height, d.cfg.ROI)})
	defer pv.Close()
	gocv.FillPoly(&d.mask, pv, color.RGBA{255, 255, 255, 255})
	d.maskSize = size
	return d.mask
}

// Gray converts frame to single-channel intensity and returns the detector's
// grayscale buffer. The result is valid until the next call.
func (d *Detector) Gray(frame gocv.Mat) gocv.Mat {
	if frame.Channels() == 1 {
		frame.CopyTo(&d.gray)
	} else {
		gocv.CvtColor(frame, &d.gray, gocv.ColorBGRToGray)
	}
	return d.gray
}

// Segments returns the Hough line segments inside the region of interest.
func (d *Detector) Segments(frame gocv.Mat) []lane.Segment {
	if frame.Empty() {
		return nil
	}
	gray := d.Gray(frame)
	gocv.Canny(gray, &d.edges, float32(d.cfg.CannyLow), float32(d.cfg.CannyHigh))
	gocv.BitwiseAnd(d.edges, d.roiMask(frame.Cols(), frame.Rows()), &d.masked)
	gocv.HoughLinesPWithParams(d.masked, &d.lines,
		float32(d.cfg.HoughRho),
		float32(d.cfg.HoughThetaDeg*math.Pi/180),
		d.cfg.HoughThreshold,
		float32(d.cfg.HoughMinLineLength),
		float32(d.cfg.HoughMaxLineGap))

	n := d.lines.Rows()
	segs := make([]lane.Segment, 0, n)
	for i := 0; i < n; i++ {
		v := d.lines.GetVeciAt(i, 0)
		if len(v) < 4 {
			continue
		}
		segs = append(segs, lane.Segment{X1: int(v[0]), Y1: int(v[1]), X2: int(v[2]), Y2: int(v[3])})
	}
	return segs
}

// Detect runs the full per-frame pipeline and returns the fitted lanes.
func (d *Detector) Detect(frame gocv.Mat) lane.Detection {
	return lane.Detect(d.Segments(frame), frame.Rows(), d.cfg.Lane)
}

// Intensity returns the mean of the most recent grayscale conversion.
func (d *Detector) Intensity() float64 {
	if d.gray.Empty() {
		return 0
	}
	return gocv.Mean(d.gray).Val1
}

// laneColor is BGR green once gocv maps RGBA to a Scalar.
var laneColor = color.RGBA{0, 255, 0, 0}

// Annotate draws lines onto frame.
func Annotate(frame *gocv.Mat, lines []lane.Line, thickness int) {
	for _, l := range lines {
		gocv.Line(frame, image.Pt(l.X1, l.Y1), image.Pt(l.X2, l.Y2), laneColor, thickness)
	}
}

func unreadable(path string, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", ErrUnreadableSource, path, fmt.Sprintf(format, args...))
}
