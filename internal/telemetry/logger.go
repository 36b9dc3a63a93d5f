package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/drivecoach/internal/timeutil"
)

// Logger polls a Source at a fixed cadence and appends one CSV row per tick.
type Logger struct {
	Source   Source
	Writer   *Writer
	Clock    timeutil.Clock
	Interval time.Duration

	// Heartbeat, when set, receives the latest sample at most once per
	// HeartbeatInterval.
	Heartbeat         func(Sample)
	HeartbeatInterval time.Duration

	rows     int
	lastBeat time.Time
}

// Rows returns the number of samples written so far.
func (l *Logger) Rows() int { return l.rows }

// EpochSeconds converts t to fractional Unix seconds.
func EpochSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// Record takes one snapshot and writes it stamped with now. It reports false
// when the source has nothing to report yet.
func (l *Logger) Record(now time.Time) (bool, error) {
	snap, err := l.Source.Snapshot()
	if errors.Is(err, ErrNoSnapshot) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s := Sample{
		Timestamp: EpochSeconds(now),
		SpeedKMH:  snap.SpeedKMH,
		Throttle:  snap.Throttle,
		Brake:     snap.Brake,
		Steer:     snap.Steer,
	}
	if err := l.Writer.Write(s); err != nil {
		return false, fmt.Errorf("write telemetry row: %w", err)
	}
	l.rows++

	if l.Heartbeat != nil && (l.lastBeat.IsZero() || now.Sub(l.lastBeat) >= l.HeartbeatInterval) {
		l.lastBeat = now
		l.Heartbeat(s)
		if err := l.Writer.Flush(); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Run records on every tick until ctx is cancelled, then flushes. A source
// failure stops the run and is returned after flushing what was captured.
func (l *Logger) Run(ctx context.Context) error {
	clock := l.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	interval := l.Interval
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return l.Writer.Flush()
		case <-ticker.C():
			if _, err := l.Record(clock.Now()); err != nil {
				if ferr := l.Writer.Flush(); ferr != nil {
					return errors.Join(err, ferr)
				}
				return err
			}
		}
	}
}
