package lane

import "fmt"

// slopeEpsilon keeps the slope of vertical segments finite.
const slopeEpsilon = 1e-6

// Segment is a line segment in pixel coordinates, y growing downwards.
type Segment struct {
	X1, Y1, X2, Y2 int
}

// Slope returns (y2-y1)/(x2-x1+ε).
func (s Segment) Slope() float64 {
	return float64(s.Y2-s.Y1) / (float64(s.X2-s.X1) + slopeEpsilon)
}

// Side is the classification of a segment as a lane boundary candidate.
type Side int

const (
	// Discarded segments are too close to horizontal to be lane markings.
	Discarded Side = iota
	// Left boundary candidates lean up-and-right in image coordinates.
	Left
	// Right boundary candidates lean up-and-left in image coordinates.
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	case Discarded:
		return "discarded"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Classify tags a segment by the sign of its slope. Slopes inside
// [-cutoff, cutoff] are discarded as noise (crosswalks, shadows).
func Classify(s Segment, cutoff float64) Side {
	slope := s.Slope()
	switch {
	case slope < -cutoff:
		return Left
	case slope > cutoff:
		return Right
	default:
		return Discarded
	}
}

// Partition splits segments into left and right candidates, preserving order.
func Partition(segments []Segment, cutoff float64) (left, right []Segment) {
	for _, s := range segments {
		switch Classify(s, cutoff) {
		case Left:
			left = append(left, s)
		case Right:
			right = append(right, s)
		}
	}
	return left, right
}
