package telemetry

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func speeds(ts, v []float64) []Sample {
	out := make([]Sample, len(ts))
	for i := range ts {
		out[i] = Sample{Timestamp: ts[i], SpeedKMH: v[i]}
	}
	return out
}

func TestDerive(t *testing.T) {
	got := Derive(speeds([]float64{0, 1, 2}, []float64{0, 10, 10}))
	require.Len(t, got, 3)

	assert.Nil(t, got[0].Accel)
	assert.Nil(t, got[0].Jerk)
	require.NotNil(t, got[1].Accel)
	assert.Equal(t, 10.0, *got[1].Accel)
	assert.Nil(t, got[1].Jerk)
	require.NotNil(t, got[2].Accel)
	assert.Equal(t, 0.0, *got[2].Accel)
	require.NotNil(t, got[2].Jerk)
	assert.Equal(t, -10.0, *got[2].Jerk)
}

func TestDerive_IrregularSpacing(t *testing.T) {
	got := Derive(speeds([]float64{0, 0.5, 2.5}, []float64{0, 5, 25}))
	assert.Equal(t, 10.0, *got[1].Accel)
	assert.Equal(t, 10.0, *got[2].Accel)
	assert.Equal(t, 0.0, *got[2].Jerk)
}

func TestDerive_SortsInput(t *testing.T) {
	sorted := speeds([]float64{0, 1, 2, 3}, []float64{0, 10, 10, 40})
	shuffled := []Sample{sorted[2], sorted[0], sorted[3], sorted[1]}

	want := Derive(sorted)
	got := Derive(shuffled)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Derive(shuffled) mismatch (-want +got):\n%s", diff)
	}
	for i, m := range got {
		assert.Equal(t, float64(i), m.Timestamp)
	}
	// Input is not modified.
	assert.Equal(t, 2.0, shuffled[0].Timestamp)
}

func TestDerive_SortIdempotent(t *testing.T) {
	in := speeds([]float64{0, 0.01, 0.02, 0.04}, []float64{50, 50.5, 50.7, 50.7})
	direct := Derive(in)
	resorted := Derive(SortByTimestamp(in))
	if diff := cmp.Diff(direct, resorted); diff != "" {
		t.Errorf("re-sorting changed the result (-direct +resorted):\n%s", diff)
	}
}

func TestDerive_DuplicateTimestamp(t *testing.T) {
	got := Derive(speeds([]float64{0, 1, 1, 2}, []float64{0, 10, 12, 12}))

	assert.Equal(t, 10.0, *got[1].Accel)
	assert.Nil(t, got[2].Accel, "dt=0 leaves accel missing")
	assert.Nil(t, got[2].Jerk)
	assert.Equal(t, 0.0, *got[3].Accel)
	assert.Nil(t, got[3].Jerk, "previous accel missing")
}

func TestDerive_Empty(t *testing.T) {
	assert.Empty(t, Derive(nil))
	got := Derive(speeds([]float64{5}, []float64{1}))
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Accel)
}

func TestMetricsCSV(t *testing.T) {
	metrics := Derive(speeds([]float64{0, 1, 2}, []float64{0, 10, 10}))

	var buf bytes.Buffer
	require.NoError(t, WriteMetricsCSV(&buf, metrics))
	want := "timestamp,speed_kmh,throttle,brake,steer,accel,jerk\n" +
		"0,0,0,0,0,,\n" +
		"1,10,0,0,0,10,\n" +
		"2,10,0,0,0,0,-10\n"
	assert.Equal(t, want, buf.String())

	got, err := ReadMetricsCSV(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(metrics, got); diff != "" {
		t.Errorf("ReadMetricsCSV() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, f(-10), got[2].Jerk)
}
