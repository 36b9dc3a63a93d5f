package lane

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/drivecoach/internal/fsutil"
)

func TestFrameTimestampMS(t *testing.T) {
	tests := []struct {
		frame int
		fps   float64
		want  int64
	}{
		{0, 30, 0},
		{1, 30, 33},
		{2, 30, 67},
		{30, 30, 1000},
		{1, 29.97, 33},
		{1, 25, 40},
		// 1·1000/16 = 62.5 and 3·1000/16 = 187.5 round half to even.
		{1, 16, 62},
		{3, 16, 188},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FrameTimestampMS(tt.frame, tt.fps), "frame %d @ %v fps", tt.frame, tt.fps)
	}
}

func TestComputeOffsets_Sign(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	store := NewRecordStore(mfs, "lanes")
	require.NoError(t, store.Init())

	require.NoError(t, store.Put(Record{Frame: 0, Lines: []Line{{100, 480, 100, 288}}}))
	require.NoError(t, store.Put(Record{Frame: 1, Lines: []Line{{540, 480, 540, 288}}}))

	got, err := ComputeOffsets(store, VideoMeta{Width: 640, Height: 480, FPS: 30, Frames: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Less(t, got[0].OffsetPX, 0.0)
	assert.Greater(t, got[1].OffsetPX, 0.0)
	assert.Equal(t, -220.0, got[0].OffsetPX)
	assert.Equal(t, 220.0, got[1].OffsetPX)
}

func TestComputeOffsets_SkipsMissingFrames(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	store := NewRecordStore(mfs, "lanes")
	require.NoError(t, store.Init())

	require.NoError(t, store.Put(Record{Frame: 1, Lines: []Line{{0, 720, 100, 432}, {640, 720, 560, 432}}}))
	require.NoError(t, store.Put(Record{Frame: 4, Lines: []Line{{300, 720, 300, 432}}}))
	// Beyond the frame count, never visited.
	require.NoError(t, store.Put(Record{Frame: 9, Lines: []Line{{300, 720, 300, 432}}}))

	got, err := ComputeOffsets(store, VideoMeta{Width: 640, Height: 720, FPS: 30, Frames: 5})
	require.NoError(t, err)

	want := []OffsetSample{
		{Frame: 1, TimestampMS: 33, OffsetPX: 5},
		{Frame: 4, TimestampMS: 133, OffsetPX: -20},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ComputeOffsets() mismatch (-want +got):\n%s", diff)
	}
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i].Frame, got[i-1].Frame)
		assert.GreaterOrEqual(t, got[i].TimestampMS, got[i-1].TimestampMS)
	}
}

type flakySource map[int]error

func (f flakySource) Get(frame int) (Record, bool, error) {
	if err, ok := f[frame]; ok {
		return Record{}, false, err
	}
	return Record{Frame: frame, Lines: []Line{{320, 10, 320, 6}}}, true, nil
}

func TestComputeOffsets_SkipsUnreadableRecords(t *testing.T) {
	src := flakySource{1: errors.New("corrupt")}
	got, err := ComputeOffsets(src, VideoMeta{Width: 640, FPS: 10, Frames: 3})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Frame)
	assert.Equal(t, 2, got[1].Frame)
	assert.Equal(t, int64(200), got[1].TimestampMS)
}

func TestComputeOffsets_InvalidMeta(t *testing.T) {
	_, err := ComputeOffsets(flakySource{}, VideoMeta{Width: 640, FPS: 0, Frames: 3})
	assert.Error(t, err)
}

func TestOffsetsCSV(t *testing.T) {
	samples := []OffsetSample{
		{Frame: 0, TimestampMS: 0, OffsetPX: -220},
		{Frame: 3, TimestampMS: 100, OffsetPX: 12.5},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteOffsetsCSV(&buf, samples))
	assert.Equal(t, "frame,timestamp_ms,lane_offset_px\n0,0,-220\n3,100,12.5\n", buf.String())

	got, err := ReadOffsetsCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, samples, got)
}

func TestOffsetsCSV_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOffsetsCSV(&buf, nil))
	assert.Equal(t, "frame,timestamp_ms,lane_offset_px\n", buf.String())

	got, err := ReadOffsetsCSV(&buf)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadOffsetsCSV_Errors(t *testing.T) {
	_, err := ReadOffsetsCSV(bytes.NewBufferString(""))
	assert.ErrorContains(t, err, "missing header")

	_, err = ReadOffsetsCSV(bytes.NewBufferString("frame,timestamp_ms\n0,0\n"))
	assert.ErrorContains(t, err, "lane_offset_px")

	_, err = ReadOffsetsCSV(bytes.NewBufferString("frame,timestamp_ms,lane_offset_px\nx,0,1\n"))
	assert.ErrorContains(t, err, "line 2")
}
