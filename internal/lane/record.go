package lane

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Line is a normalized lane line, bottom endpoint first.
type Line struct {
	X1, Y1, X2, Y2 int
}

// Midpoint returns the mean of the two x coordinates.
func (l Line) Midpoint() float64 {
	return float64(l.X1+l.X2) / 2
}

// Policy selects which detected lines are kept in a frame's record.
type Policy int

const (
	// PolicyBoth keeps the left and the right line when both are found.
	PolicyBoth Policy = iota
	// PolicyLast keeps only the last line found (right over left).
	PolicyLast
)

// ParsePolicy maps the configuration names "both" and "last".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return PolicyBoth, nil
	case "last":
		return PolicyLast, nil
	default:
		return PolicyBoth, fmt.Errorf("unknown record policy %q", s)
	}
}

func (p Policy) String() string {
	if p == PolicyLast {
		return "last"
	}
	return "both"
}

// Record is the lane geometry persisted for one frame.
type Record struct {
	Frame int
	Lines []Line
}

// Empty reports whether the record carries no lines.
func (r Record) Empty() bool { return len(r.Lines) == 0 }

// Center returns the mean midpoint of all lines in the record.
func (r Record) Center() (float64, bool) {
	if len(r.Lines) == 0 {
		return 0, false
	}
	var sum float64
	for _, l := range r.Lines {
		sum += l.Midpoint()
	}
	return sum / float64(len(r.Lines)), true
}

// MarshalText encodes one line per row as "x1 y1 x2 y2".
func (r Record) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	for _, l := range r.Lines {
		fmt.Fprintf(&buf, "%d %d %d %d\n", l.X1, l.Y1, l.X2, l.Y2)
	}
	return buf.Bytes(), nil
}

// ParseRecord decodes the rows written by MarshalText. Blank rows are
// skipped; any other row must hold exactly four integers.
func ParseRecord(frame int, data []byte) (Record, error) {
	rec := Record{Frame: frame}
	sc := bufio.NewScanner(bytes.NewReader(data))
	row := 0
	for sc.Scan() {
		row++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 4 {
			return Record{}, fmt.Errorf("frame %d row %d: expected 4 values, got %d", frame, row, len(fields))
		}
		var v [4]int
		for i, f := range fields {
			n, err := strconv.Atoi(f)
			if err != nil {
				return Record{}, fmt.Errorf("frame %d row %d: %w", frame, row, err)
			}
			v[i] = n
		}
		rec.Lines = append(rec.Lines, Line{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]})
	}
	if err := sc.Err(); err != nil {
		return Record{}, fmt.Errorf("frame %d: %w", frame, err)
	}
	return rec, nil
}
