package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	lanePath := filepath.Join(dir, "lane.csv")
	metricsPath := filepath.Join(dir, "metrics.csv")
	syncPath := filepath.Join(dir, "sync.json")
	out := filepath.Join(dir, "joined.csv")

	require.NoError(t, os.WriteFile(lanePath, []byte(
		"frame,timestamp_ms,lane_offset_px\n"+
			"30,1000,-12.5\n"+
			"60,2000,4\n"), 0o644))
	require.NoError(t, os.WriteFile(metricsPath, []byte(
		"timestamp,speed_kmh,throttle,brake,steer,accel,jerk\n"+
			"1.5,40,0.2,0,0,,\n"+
			"2.01,44,0.2,0,0,2,\n"), 0o644))
	require.NoError(t, os.WriteFile(syncPath, []byte(`{"t0":2,"offset":1}`), 0o644))

	var stdout bytes.Buffer
	require.NoError(t, run([]string{lanePath, metricsPath, syncPath, out}, &stdout))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t,
		"frame,timestamp_ms,telemetry_timestamp,lane_offset_px,speed_kmh,brake,accel,jerk\n"+
			"30,1000,2.01,-12.5,44,0,2,\n", string(got))
	assert.Contains(t, stdout.String(), "1/2 lane samples joined within 50ms")
}

func TestRun_BadDescriptor(t *testing.T) {
	dir := t.TempDir()
	lanePath := filepath.Join(dir, "lane.csv")
	metricsPath := filepath.Join(dir, "metrics.csv")
	syncPath := filepath.Join(dir, "sync.json")
	require.NoError(t, os.WriteFile(lanePath, []byte("frame,timestamp_ms,lane_offset_px\n"), 0o644))
	require.NoError(t, os.WriteFile(metricsPath, []byte("timestamp,speed_kmh,throttle,brake,steer,accel,jerk\n"), 0o644))
	require.NoError(t, os.WriteFile(syncPath, []byte(`{"t0":2}`), 0o644))

	var stdout bytes.Buffer
	err := run([]string{lanePath, metricsPath, syncPath, filepath.Join(dir, "joined.csv")}, &stdout)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync.json")
}
