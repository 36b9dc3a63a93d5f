// Package telemetry handles vehicle telemetry: the sample CSV format, the
// acceleration and jerk derivatives, and live capture from a telemetry
// source into a CSV log.
package telemetry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrMalformed is returned when a telemetry CSV cannot be parsed.
var ErrMalformed = errors.New("malformed telemetry")

// Sample is one telemetry reading. Timestamp is wall-clock epoch seconds.
type Sample struct {
	Timestamp float64
	SpeedKMH  float64
	Throttle  float64
	Brake     float64
	Steer     float64
}

// Header is the telemetry CSV header.
var Header = []string{"timestamp", "speed_kmh", "throttle", "brake", "steer"}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (s Sample) row() []string {
	return []string{
		formatFloat(s.Timestamp),
		formatFloat(s.SpeedKMH),
		formatFloat(s.Throttle),
		formatFloat(s.Brake),
		formatFloat(s.Steer),
	}
}

// Writer streams samples to a telemetry CSV.
type Writer struct {
	cw *csv.Writer
}

// NewWriter writes the header and returns a Writer.
func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return nil, err
	}
	return &Writer{cw: cw}, nil
}

// Write appends one sample.
func (w *Writer) Write(s Sample) error {
	return w.cw.Write(s.row())
}

// Flush flushes buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	w.cw.Flush()
	return w.cw.Error()
}

// WriteCSV writes a complete telemetry CSV.
func WriteCSV(w io.Writer, samples []Sample) error {
	tw, err := NewWriter(w)
	if err != nil {
		return err
	}
	for _, s := range samples {
		if err := tw.Write(s); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// table reads a CSV whose columns are located by header name.
type table struct {
	cr     *csv.Reader
	colMap map[string]int
	line   int
}

func newTable(r io.Reader, required []string) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header", ErrMalformed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	colMap := make(map[string]int, len(header))
	for i, h := range header {
		colMap[h] = i
	}
	for _, name := range required {
		if _, ok := colMap[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformed, name)
		}
	}
	return &table{cr: cr, colMap: colMap, line: 1}, nil
}

// next returns the next record, or io.EOF.
func (t *table) next() ([]string, error) {
	rec, err := t.cr.Read()
	t.line++
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return rec, nil
}

func (t *table) float(rec []string, name string) (float64, error) {
	v, err := strconv.ParseFloat(rec[t.colMap[name]], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d column %s: %v", ErrMalformed, t.line, name, err)
	}
	return v, nil
}

// optionalFloat parses an empty cell as missing.
func (t *table) optionalFloat(rec []string, name string) (*float64, error) {
	if rec[t.colMap[name]] == "" {
		return nil, nil
	}
	v, err := t.float(rec, name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *table) sample(rec []string) (Sample, error) {
	var s Sample
	var err error
	fields := []struct {
		name string
		dst  *float64
	}{
		{"timestamp", &s.Timestamp},
		{"speed_kmh", &s.SpeedKMH},
		{"throttle", &s.Throttle},
		{"brake", &s.Brake},
		{"steer", &s.Steer},
	}
	for _, f := range fields {
		if *f.dst, err = t.float(rec, f.name); err != nil {
			return Sample{}, err
		}
	}
	return s, nil
}

// ReadCSV parses a telemetry CSV. Extra columns are ignored.
func ReadCSV(r io.Reader) ([]Sample, error) {
	t, err := newTable(r, Header)
	if err != nil {
		return nil, err
	}
	var out []Sample
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
		out = append(out, s)
	}
}
