package lane

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// minFitSlope is the smallest |m| whose inverse is still solved for x.
const minFitSlope = 1e-6

// Fit is a first-degree polynomial y = Slope·x + Intercept.
type Fit struct {
	Slope     float64
	Intercept float64
}

// FitSegments pools the endpoints of every segment and fits y = m·x + b by
// ordinary least squares. It reports false when the pooled points do not
// contain at least two distinct x values, where the fit is undefined.
func FitSegments(segments []Segment) (Fit, bool) {
	if len(segments) == 0 {
		return Fit{}, false
	}

	xs := make([]float64, 0, 2*len(segments))
	ys := make([]float64, 0, 2*len(segments))
	for _, s := range segments {
		xs = append(xs, float64(s.X1))
		ys = append(ys, float64(s.Y1))
	}
	for _, s := range segments {
		xs = append(xs, float64(s.X2))
		ys = append(ys, float64(s.Y2))
	}

	distinct := false
	for _, x := range xs[1:] {
		if x != xs[0] {
			distinct = true
			break
		}
	}
	if !distinct {
		return Fit{}, false
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) || math.IsInf(alpha, 0) || math.IsInf(beta, 0) {
		return Fit{}, false
	}
	return Fit{Slope: beta, Intercept: alpha}, true
}

// XAt solves x = (y-b)/m. It reports false when the slope is too flat for the
// inverse to be meaningful or the result does not fit in pixel coordinates.
func (f Fit) XAt(y float64) (int, bool) {
	if math.Abs(f.Slope) < minFitSlope {
		return 0, false
	}
	x := (y - f.Intercept) / f.Slope
	if math.IsNaN(x) || math.IsInf(x, 0) || x > math.MaxInt32 || x < math.MinInt32 {
		return 0, false
	}
	return int(x), true
}

// Span returns the fitted line clipped to run from the frame bottom up to
// topFraction of the frame height. The bottom endpoint comes first.
func (f Fit) Span(height int, topFraction float64) (Line, bool) {
	bottom := height
	top := int(float64(height) * topFraction)

	xBottom, ok := f.XAt(float64(bottom))
	if !ok {
		return Line{}, false
	}
	xTop, ok := f.XAt(float64(top))
	if !ok {
		return Line{}, false
	}
	return Line{X1: xBottom, Y1: bottom, X2: xTop, Y2: top}, true
}

// Params controls how raw segments become lane lines.
type Params struct {
	SlopeCutoff float64 // |slope| at or below this is discarded
	TopFraction float64 // fitted lines end at this fraction of frame height
}

// DefaultParams returns the parameters used by the reference pipeline.
func DefaultParams() Params {
	return Params{SlopeCutoff: 0.5, TopFraction: 0.6}
}

// Detection holds the lane lines found in one frame. Either side may be nil.
type Detection struct {
	Left  *Line
	Right *Line
}

// Detect classifies segments, fits each non-empty side and spans the fit
// over the lower part of a frame of the given height. Degenerate sides are
// left nil; Detect never fails.
func Detect(segments []Segment, height int, p Params) Detection {
	left, right := Partition(segments, p.SlopeCutoff)

	var d Detection
	if fit, ok := FitSegments(left); ok {
		if line, ok := fit.Span(height, p.TopFraction); ok {
			d.Left = &line
		}
	}
	if fit, ok := FitSegments(right); ok {
		if line, ok := fit.Span(height, p.TopFraction); ok {
			d.Right = &line
		}
	}
	return d
}

// Lines returns the detected lines, left first.
func (d Detection) Lines() []Line {
	var lines []Line
	if d.Left != nil {
		lines = append(lines, *d.Left)
	}
	if d.Right != nil {
		lines = append(lines, *d.Right)
	}
	return lines
}

// Record converts the detection into the lane record for frame under policy.
func (d Detection) Record(frame int, policy Policy) Record {
	lines := d.Lines()
	if policy == PolicyLast && len(lines) > 1 {
		lines = lines[len(lines)-1:]
	}
	return Record{Frame: frame, Lines: lines}
}
