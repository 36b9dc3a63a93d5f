package telemetry

import (
	"fmt"
	"os"
	"sync"
)

// ReplaySource cycles through recorded samples, one per Snapshot call.
type ReplaySource struct {
	mu      sync.Mutex
	samples []Sample
	next    int
}

// NewReplaySource returns a source over samples.
func NewReplaySource(samples []Sample) (*ReplaySource, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: replay has no samples", ErrSourceUnavailable)
	}
	return &ReplaySource{samples: samples}, nil
}

// OpenReplay loads a telemetry CSV fixture.
func OpenReplay(path string) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer f.Close()

	samples, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", path, err)
	}
	return NewReplaySource(samples)
}

// Snapshot returns the next recorded sample, wrapping at the end.
func (r *ReplaySource) Snapshot() (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.samples[r.next]
	r.next = (r.next + 1) % len(r.samples)
	return Snapshot{SpeedKMH: s.SpeedKMH, Throttle: s.Throttle, Brake: s.Brake, Steer: s.Steer}, nil
}

// Close is a no-op.
func (r *ReplaySource) Close() error { return nil }
