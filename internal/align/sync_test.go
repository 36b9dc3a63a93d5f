package align

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(name string, ts, vals []float64) Series {
	s := Series{Name: name}
	for i := range ts {
		s.Points = append(s.Points, Point{Timestamp: ts[i], Value: vals[i]})
	}
	return s
}

func TestSynchronize(t *testing.T) {
	tele := series("telemetry", []float64{0, 1, 2, 3}, []float64{0, 0, 80, 0})
	video := series("video", []float64{10, 11, 12, 13}, []float64{0, 60, 0, 0})

	d, err := Synchronize(tele, 75, video, 50)
	require.NoError(t, err)
	assert.Equal(t, Descriptor{T0: 2, Offset: -9}, d)
	assert.Equal(t, 2.0, d.ToPrimary(11))
}

func TestSynchronize_Idempotent(t *testing.T) {
	tele := series("telemetry", []float64{0, 1, 2, 3}, []float64{0, 0, 80, 90})
	video := series("video", []float64{10, 11, 12, 13}, []float64{0, 60, 70, 0})

	first, err := Synchronize(tele, 75, video, 50)
	require.NoError(t, err)
	second, err := Synchronize(tele, 75, video, 50)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSynchronize_MissingSpike(t *testing.T) {
	tele := series("telemetry", []float64{0, 1, 2}, []float64{0, 75, 10})
	video := series("video", []float64{0, 1}, []float64{0, 60})

	_, err := Synchronize(tele, 75, video, 50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSpikeNotFound))
	assert.Contains(t, err.Error(), "telemetry")

	tele = series("telemetry", []float64{0, 1}, []float64{0, 80})
	video = series("video", nil, nil)
	_, err = Synchronize(tele, 75, video, 50)
	assert.True(t, errors.Is(err, ErrSpikeNotFound))
	assert.Contains(t, err.Error(), "video")
}

func TestFirstSpike_TimestampOrder(t *testing.T) {
	s := series("s", []float64{5, 1, 3}, []float64{100, 0, 90})
	p, err := FirstSpike(s, 50)
	require.NoError(t, err)
	assert.Equal(t, Point{Timestamp: 3, Value: 90}, p)
	// Input order is untouched.
	assert.Equal(t, 5.0, s.Points[0].Timestamp)
}

func TestFirstSpike_StrictlyGreater(t *testing.T) {
	_, err := FirstSpike(series("s", []float64{0, 1}, []float64{50, 50}), 50)
	assert.True(t, errors.Is(err, ErrSpikeNotFound))
}

func TestDescriptorJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDescriptor(&buf, Descriptor{T0: 1712345680.5, Offset: -9.25}))
	assert.JSONEq(t, `{"t0": 1712345680.5, "offset": -9.25}`, buf.String())

	d, err := ReadDescriptor(&buf)
	require.NoError(t, err)
	assert.Equal(t, Descriptor{T0: 1712345680.5, Offset: -9.25}, d)

	_, err = ReadDescriptor(strings.NewReader(`{"t0": 1}`))
	assert.Error(t, err)
	_, err = ReadDescriptor(strings.NewReader(`not json`))
	assert.Error(t, err)
}
