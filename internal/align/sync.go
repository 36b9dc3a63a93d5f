package align

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrSpikeNotFound is returned when no sample of a series exceeds its
// threshold. Synchronisation cannot proceed without both spikes.
var ErrSpikeNotFound = errors.New("sync spike not found")

// FirstSpike returns the earliest point whose value strictly exceeds
// threshold, scanning in timestamp order.
func FirstSpike(s Series, threshold float64) (Point, error) {
	for _, p := range s.Sorted().Points {
		if p.Value > threshold {
			return p, nil
		}
	}
	return Point{}, fmt.Errorf("%w: %s has no value above %v", ErrSpikeNotFound, s.Name, threshold)
}

// Descriptor maps the secondary clock onto the primary clock:
// t_primary = t_secondary + Offset. T0 is the primary spike time.
type Descriptor struct {
	T0     float64 `json:"t0"`
	Offset float64 `json:"offset"`
}

// ToPrimary converts a secondary timestamp to the primary clock.
func (d Descriptor) ToPrimary(t float64) float64 {
	return t + d.Offset
}

// Synchronize locates the first spike in each series and returns the
// descriptor aligning secondary onto primary.
func Synchronize(primary Series, primaryThreshold float64, secondary Series, secondaryThreshold float64) (Descriptor, error) {
	p, err := FirstSpike(primary, primaryThreshold)
	if err != nil {
		return Descriptor{}, err
	}
	s, err := FirstSpike(secondary, secondaryThreshold)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{T0: p.Timestamp, Offset: p.Timestamp - s.Timestamp}, nil
}

// WriteDescriptor encodes d as JSON.
func WriteDescriptor(w io.Writer, d Descriptor) error {
	return json.NewEncoder(w).Encode(d)
}

// ReadDescriptor decodes a descriptor written by WriteDescriptor.
func ReadDescriptor(r io.Reader) (Descriptor, error) {
	var raw struct {
		T0     *float64 `json:"t0"`
		Offset *float64 `json:"offset"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Descriptor{}, fmt.Errorf("parse sync descriptor: %w", err)
	}
	if raw.T0 == nil || raw.Offset == nil {
		return Descriptor{}, fmt.Errorf("parse sync descriptor: t0 and offset are required")
	}
	return Descriptor{T0: *raw.T0, Offset: *raw.Offset}, nil
}
