package telemetry

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"sort"
)

// Metrics is a sample augmented with its finite-difference derivatives.
// A nil Accel or Jerk means the derivative is undefined for that sample.
type Metrics struct {
	Sample
	Accel *float64
	Jerk  *float64
}

// MetricsHeader is the telemetry-metrics CSV header.
var MetricsHeader = append(append([]string{}, Header...), "accel", "jerk")

// SortByTimestamp returns a copy of samples stably sorted by timestamp.
func SortByTimestamp(samples []Sample) []Sample {
	out := make([]Sample, len(samples))
	copy(out, samples)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// divide returns num/den, or nil when either side is missing or the result
// is not finite.
func divide(num *float64, den float64) *float64 {
	if num == nil || den == 0 {
		return nil
	}
	v := *num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Derive sorts samples by timestamp and computes accel = Δspeed/Δt and
// jerk = Δaccel/Δt against the preceding sample. Duplicate timestamps leave
// the affected derivatives missing.
func Derive(samples []Sample) []Metrics {
	sorted := SortByTimestamp(samples)
	out := make([]Metrics, len(sorted))
	for i, s := range sorted {
		out[i].Sample = s
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		dt := s.Timestamp - prev.Timestamp
		dv := s.SpeedKMH - prev.SpeedKMH
		out[i].Accel = divide(&dv, dt)

		if i >= 2 && out[i].Accel != nil && out[i-1].Accel != nil {
			da := *out[i].Accel - *out[i-1].Accel
			out[i].Jerk = divide(&da, dt)
		}
	}
	return out
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

// WriteMetricsCSV writes the metrics CSV. Missing derivatives are empty cells.
func WriteMetricsCSV(w io.Writer, metrics []Metrics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MetricsHeader); err != nil {
		return err
	}
	for _, m := range metrics {
		row := append(m.Sample.row(), formatOptional(m.Accel), formatOptional(m.Jerk))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadMetricsCSV parses a telemetry-metrics CSV.
func ReadMetricsCSV(r io.Reader) ([]Metrics, error) {
	t, err := newTable(r, MetricsHeader)
	if err != nil {
		return nil, err
	}
	var out []Metrics
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		s, err := t.sample(rec)
		if err != nil {
			return nil, err
		}
		m := Metrics{Sample: s}
		if m.Accel, err = t.optionalFloat(rec, "accel"); err != nil {
			return nil, err
		}
		if m.Jerk, err = t.optionalFloat(rec, "jerk"); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
}
