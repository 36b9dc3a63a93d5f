// Package units names the speed units a serial telemetry source may report
// and converts them to km/h.
package units

import (
	"fmt"
	"strings"
)

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// kmhPer is the km/h value of one unit.
var kmhPer = map[string]float64{
	MPS:  3.6,
	MPH:  1.609344,
	KMPH: 1,
	KPH:  1,
}

// IsValid reports whether unit is one of ValidUnits. Matching is
// case-sensitive.
func IsValid(unit string) bool {
	_, ok := kmhPer[unit]
	return ok
}

// GetValidUnitsString returns the valid units for flag help and errors.
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ToKMH converts speed from fromUnits to km/h. An empty unit means the
// value is already km/h.
func ToKMH(speed float64, fromUnits string) (float64, error) {
	if fromUnits == "" {
		return speed, nil
	}
	f, ok := kmhPer[fromUnits]
	if !ok {
		return 0, fmt.Errorf("invalid speed units %q: expected one of %s", fromUnits, GetValidUnitsString())
	}
	return speed * f, nil
}
