package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/drivecoach/internal/units"
)

var (
	// ErrSourceUnavailable is returned when the telemetry source cannot be
	// reached. The simulator or device must be running before capture starts.
	ErrSourceUnavailable = errors.New("telemetry source unavailable")

	// ErrNoSnapshot is returned by a source that has not produced a reading yet.
	ErrNoSnapshot = errors.New("no telemetry snapshot yet")
)

// Snapshot is the current vehicle state reported by a source.
type Snapshot struct {
	SpeedKMH float64
	Throttle float64
	Brake    float64
	Steer    float64
}

// Source is a pull-based telemetry handle. It is acquired once at startup
// and released with Close.
type Source interface {
	// Snapshot returns the most recent vehicle state.
	Snapshot() (Snapshot, error)
	Close() error
}

// ParseSnapshot parses a "speed,throttle,brake,steer" line. speedUnits names
// the unit of the speed field (see package units).
func ParseSnapshot(line, speedUnits string) (Snapshot, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 4 {
		return Snapshot{}, fmt.Errorf("%w: expected 4 fields, got %d", ErrMalformed, len(fields))
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: field %d: %v", ErrMalformed, i+1, err)
		}
		v[i] = n
	}
	speed, err := units.ToKMH(v[0], speedUnits)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{SpeedKMH: speed, Throttle: v[1], Brake: v[2], Steer: v[3]}, nil
}
