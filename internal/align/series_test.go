package align

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSeriesCSV(t *testing.T) {
	in := "timestamp,speed_kmh,throttle,brake,steer,accel,jerk\n" +
		"0,0,0,0,0,,\n" +
		"1,10,0,80,0,10,\n"
	s, err := ReadSeriesCSV(strings.NewReader(in), "telemetry", "timestamp", "brake")
	require.NoError(t, err)
	assert.Equal(t, "telemetry", s.Name)
	assert.Equal(t, []Point{{0, 0}, {1, 80}}, s.Points)

	s, err = ReadSeriesCSV(strings.NewReader(in), "telemetry", "timestamp", "jerk")
	require.NoError(t, err)
	assert.Empty(t, s.Points, "empty cells are skipped")
}

func TestReadSeriesCSV_Errors(t *testing.T) {
	_, err := ReadSeriesCSV(strings.NewReader(""), "x", "timestamp", "brake")
	assert.ErrorContains(t, err, "missing header")

	_, err = ReadSeriesCSV(strings.NewReader("timestamp,gas\n"), "x", "timestamp", "brake")
	assert.ErrorContains(t, err, `missing column "brake"`)

	_, err = ReadSeriesCSV(strings.NewReader("time,brake\n"), "x", "timestamp", "brake")
	assert.ErrorContains(t, err, `missing column "timestamp"`)

	_, err = ReadSeriesCSV(strings.NewReader("timestamp,brake\nnow,1\n"), "x", "timestamp", "brake")
	assert.ErrorContains(t, err, "line 2")
}

func TestIntensityCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIntensityCSV(&buf, 4, []float64{10, 60.5, 20}))
	assert.Equal(t, "frame,timestamp,intensity\n0,0,10\n1,0.25,60.5\n2,0.5,20\n", buf.String())

	s, err := ReadSeriesCSV(&buf, "video", "timestamp", "intensity")
	require.NoError(t, err)
	p, err := FirstSpike(s, 50)
	require.NoError(t, err)
	assert.Equal(t, 0.25, p.Timestamp)

	assert.Error(t, WriteIntensityCSV(&buf, 0, nil))
}
