package vision

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/banshee-data/drivecoach/internal/fsutil"
	"github.com/banshee-data/drivecoach/internal/lane"
	"github.com/banshee-data/drivecoach/internal/pipeline"
)

func writeRoadVideo(t *testing.T, path string, road, blank int) {
	t.Helper()
	w, err := gocv.VideoWriterFile(path, "MJPG", 10, 640, 480, true)
	if err != nil || !w.IsOpened() {
		t.Skipf("MJPG writer unavailable: %v", err)
	}
	roadImg := roadFrame(t)
	defer roadImg.Close()
	blankImg := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer blankImg.Close()
	for i := 0; i < road; i++ {
		require.NoError(t, w.Write(roadImg))
	}
	for i := 0; i < blank; i++ {
		require.NoError(t, w.Write(blankImg))
	}
	require.NoError(t, w.Close())
}

func TestRunner_Run(t *testing.T) {
	dir := t.TempDir()
	a := pipeline.NewArtifacts(dir)
	a.Video = filepath.Join(dir, "drive.avi")
	a.Annotated = filepath.Join(dir, "annotated.avi")
	writeRoadVideo(t, a.Video, 3, 2)

	r := NewRunner(Options{Detector: testDetectorConfig(), LineThickness: 8, Codec: "MJPG"})
	res, err := r.Run(context.Background(), a)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Meta.Frames)
	assert.Equal(t, 3, res.Detections)
	assert.Equal(t, 3, res.OffsetRows)
	assert.FileExists(t, a.Annotated)

	laneCSV, err := os.ReadFile(a.LaneCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(laneCSV)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "frame,timestamp_ms,lane_offset_px", lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "1,100,"), lines[2])

	intensity, err := os.ReadFile(a.IntensityCSV)
	require.NoError(t, err)
	assert.Equal(t, 6, strings.Count(string(intensity), "\n"))
}

func TestRunner_RejectsEscapingArtifacts(t *testing.T) {
	dir := t.TempDir()
	a := pipeline.NewArtifacts(dir)
	a.LaneCSV = filepath.Join(dir, "..", "lane.csv")

	_, err := NewRunner(Options{Detector: testDetectorConfig()}).Run(context.Background(), a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path traversal")
}

func TestExtract_RerunReplacesRecords(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.avi")
	second := filepath.Join(dir, "second.avi")
	writeRoadVideo(t, first, 3, 0)
	writeRoadVideo(t, second, 1, 2)

	store := lane.NewRecordStore(fsutil.OSFileSystem{}, filepath.Join(dir, "lanes"))
	opts := Options{Detector: testDetectorConfig()}

	res, err := Extract(context.Background(), first, store, opts)
	require.NoError(t, err)
	require.Equal(t, 3, res.Detections)

	res, err = Extract(context.Background(), second, store, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Detections)

	for _, frame := range []int{1, 2} {
		_, ok, err := store.Get(frame)
		require.NoError(t, err)
		assert.False(t, ok, "frame %d has no detection in the second video", frame)
	}
	offsets, err := lane.ComputeOffsets(store, res.Meta)
	require.NoError(t, err)
	assert.Len(t, offsets, 1)
}
