// Package align synchronises independently clocked time series.
//
// Each series is expected to contain one clear spike (a hard brake in
// telemetry, a flash in the video intensity). The first sample above a
// per-series threshold marks the shared event, and the difference between
// the two event times maps the secondary clock onto the primary one.
package align

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Point is one sample of a series. Timestamp is in seconds.
type Point struct {
	Timestamp float64
	Value     float64
}

// Series is a named sequence of points.
type Series struct {
	Name   string
	Points []Point
}

// Sorted returns a copy of s stably sorted by timestamp.
func (s Series) Sorted() Series {
	pts := make([]Point, len(s.Points))
	copy(pts, s.Points)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Timestamp < pts[j].Timestamp })
	return Series{Name: s.Name, Points: pts}
}

// ReadSeriesCSV reads the timestamp column and the spike column valueCol
// from a CSV with a header row.
func ReadSeriesCSV(r io.Reader, name, timestampCol, valueCol string) (Series, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Series{}, fmt.Errorf("%s: missing header", name)
	}
	if err != nil {
		return Series{}, fmt.Errorf("%s: %w", name, err)
	}

	colMap := make(map[string]int, len(header))
	for i, h := range header {
		colMap[h] = i
	}
	tsIdx, ok := colMap[timestampCol]
	if !ok {
		return Series{}, fmt.Errorf("%s: missing column %q", name, timestampCol)
	}
	valIdx, ok := colMap[valueCol]
	if !ok {
		return Series{}, fmt.Errorf("%s: missing column %q", name, valueCol)
	}

	s := Series{Name: name}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return Series{}, fmt.Errorf("%s: %w", name, err)
		}
		ts, err := strconv.ParseFloat(rec[tsIdx], 64)
		if err != nil {
			return Series{}, fmt.Errorf("%s line %d: %s: %w", name, line, timestampCol, err)
		}
		// Empty cells never qualify as a spike.
		if rec[valIdx] == "" {
			continue
		}
		v, err := strconv.ParseFloat(rec[valIdx], 64)
		if err != nil {
			return Series{}, fmt.Errorf("%s line %d: %s: %w", name, line, valueCol, err)
		}
		s.Points = append(s.Points, Point{Timestamp: ts, Value: v})
	}
}

// IntensityHeader is the header of the per-frame intensity CSV.
var IntensityHeader = []string{"frame", "timestamp", "intensity"}

// WriteIntensityCSV writes one row per frame with timestamp = frame/fps
// seconds.
func WriteIntensityCSV(w io.Writer, fps float64, values []float64) error {
	if fps <= 0 {
		return fmt.Errorf("invalid fps %v", fps)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(IntensityHeader); err != nil {
		return err
	}
	for i, v := range values {
		row := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(float64(i)/fps, 'f', -1, 64),
			strconv.FormatFloat(v, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
