package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/drivecoach/internal/api"
)

func TestParseServe_Defaults(t *testing.T) {
	var stdout bytes.Buffer
	o, ok, err := parseServe(nil, &stdout)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, serveOptions{
		listen:    ":8080",
		dataDir:   "sessions",
		dbPath:    "drivecoach.db",
		maxUpload: api.DefaultMaxUpload,
	}, o)
}

func TestParseServe_EnvAndFlags(t *testing.T) {
	t.Setenv("DRIVECOACH_LISTEN", ":9000")
	t.Setenv("DRIVECOACH_DATA_DIR", "/srv/drives")
	t.Setenv("DRIVECOACH_CONFIG", "/etc/drivecoach/pipeline.json")

	var stdout bytes.Buffer
	o, ok, err := parseServe([]string{"-listen", "127.0.0.1:7000"}, &stdout)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:7000", o.listen)
	assert.Equal(t, "/srv/drives", o.dataDir)
	assert.Equal(t, "/etc/drivecoach/pipeline.json", o.configPath)
}

func TestParseServe_Version(t *testing.T) {
	var stdout bytes.Buffer
	_, ok, err := parseServe([]string{"-version"}, &stdout)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, stdout.String(), "drivecoach")
}

func TestParseServe_EmptyListen(t *testing.T) {
	var stdout bytes.Buffer
	_, _, err := parseServe([]string{"-listen", ""}, &stdout)
	assert.Error(t, err)
}

func TestEnvOr(t *testing.T) {
	t.Setenv("DRIVECOACH_SERVER", "")
	assert.Equal(t, "http://localhost:8080", envOr("SERVER", "http://localhost:8080"))
	t.Setenv("DRIVECOACH_SERVER", "http://coach:8080")
	assert.Equal(t, "http://coach:8080", envOr("SERVER", "http://localhost:8080"))
}
