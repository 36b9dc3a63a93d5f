package align

import (
	"encoding/csv"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/banshee-data/drivecoach/internal/lane"
	"github.com/banshee-data/drivecoach/internal/telemetry"
)

// Joined is a lane offset sample paired with the nearest telemetry sample.
type Joined struct {
	Frame              int
	TimestampMS        int64
	TelemetryTimestamp float64
	OffsetPX           float64
	SpeedKMH           float64
	Brake              float64
	Accel              *float64
	Jerk               *float64
}

// JoinedHeader is the joined CSV header.
var JoinedHeader = []string{
	"frame", "timestamp_ms", "telemetry_timestamp", "lane_offset_px",
	"speed_kmh", "brake", "accel", "jerk",
}

// Join maps every lane sample onto the telemetry clock with d and pairs it
// with the nearest telemetry sample within tolerance. Lane samples without a
// telemetry sample in range are dropped.
func Join(lanes []lane.OffsetSample, metrics []telemetry.Metrics, d Descriptor, tolerance time.Duration) []Joined {
	tele := make([]telemetry.Metrics, len(metrics))
	copy(tele, metrics)
	sort.SliceStable(tele, func(i, j int) bool { return tele[i].Timestamp < tele[j].Timestamp })

	tol := tolerance.Seconds()
	var out []Joined
	for _, l := range lanes {
		t := d.ToPrimary(float64(l.TimestampMS) / 1000)
		m, ok := nearest(tele, t, tol)
		if !ok {
			continue
		}
		out = append(out, Joined{
			Frame:              l.Frame,
			TimestampMS:        l.TimestampMS,
			TelemetryTimestamp: m.Timestamp,
			OffsetPX:           l.OffsetPX,
			SpeedKMH:           m.SpeedKMH,
			Brake:              m.Brake,
			Accel:              m.Accel,
			Jerk:               m.Jerk,
		})
	}
	return out
}

// nearest returns the sample closest to t; ties go to the earlier sample.
func nearest(sorted []telemetry.Metrics, t, tol float64) (telemetry.Metrics, bool) {
	if len(sorted) == 0 {
		return telemetry.Metrics{}, false
	}
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i].Timestamp >= t })

	best := -1
	bestDist := math.Inf(1)
	for _, j := range []int{i - 1, i} {
		if j < 0 || j >= len(sorted) {
			continue
		}
		if dist := math.Abs(sorted[j].Timestamp - t); dist < bestDist {
			best, bestDist = j, dist
		}
	}
	if best < 0 || bestDist > tol {
		return telemetry.Metrics{}, false
	}
	return sorted[best], true
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// WriteJoinedCSV writes the joined rows.
func WriteJoinedCSV(w io.Writer, rows []Joined) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(JoinedHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Frame),
			strconv.FormatInt(r.TimestampMS, 10),
			strconv.FormatFloat(r.TelemetryTimestamp, 'f', -1, 64),
			strconv.FormatFloat(r.OffsetPX, 'f', -1, 64),
			strconv.FormatFloat(r.SpeedKMH, 'f', -1, 64),
			strconv.FormatFloat(r.Brake, 'f', -1, 64),
			formatOptional(r.Accel),
			formatOptional(r.Jerk),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
