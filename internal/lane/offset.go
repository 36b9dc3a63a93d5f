package lane

import (
	"math"

	"github.com/banshee-data/drivecoach/internal/monitoring"
)

// FrameTimestampMS returns round(frame·1000/fps), ties to even.
func FrameTimestampMS(frame int, fps float64) int64 {
	return int64(math.RoundToEven(float64(frame) * 1000 / fps))
}

// Offset returns the record's lane center minus the image center. Negative
// means the lane center lies left of the image center.
func Offset(r Record, frameWidth int) (float64, bool) {
	center, ok := r.Center()
	if !ok {
		return 0, false
	}
	return center - float64(frameWidth)/2, true
}

// OffsetSample is one row of the lane offset series.
type OffsetSample struct {
	Frame       int
	TimestampMS int64
	OffsetPX    float64
}

// RecordSource yields per-frame lane records.
type RecordSource interface {
	Get(frame int) (Record, bool, error)
}

// ComputeOffsets visits every frame in [0, meta.Frames) and emits a sample
// for each frame that has a record. Frames without a record are skipped.
// Records that cannot be read are logged and skipped.
func ComputeOffsets(src RecordSource, meta VideoMeta) ([]OffsetSample, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	var out []OffsetSample
	for i := 0; i < meta.Frames; i++ {
		rec, ok, err := src.Get(i)
		if err != nil {
			monitoring.Logf("lane: skipping frame %d: %v", i, err)
			continue
		}
		if !ok {
			continue
		}
		off, ok := Offset(rec, meta.Width)
		if !ok {
			continue
		}
		out = append(out, OffsetSample{
			Frame:       i,
			TimestampMS: FrameTimestampMS(i, meta.FPS),
			OffsetPX:    off,
		})
	}
	return out, nil
}
