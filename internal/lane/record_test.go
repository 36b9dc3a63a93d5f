package lane

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordText(t *testing.T) {
	rec := Record{Frame: 4, Lines: []Line{{-20, 720, 268, 432}, {820, 720, 532, 432}}}
	data, err := rec.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "-20 720 268 432\n820 720 532 432\n", string(data))

	got, err := ParseRecord(4, data)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestParseRecord_SkipsBlankRows(t *testing.T) {
	got, err := ParseRecord(0, []byte("\n1 2 3 4\n\n"))
	require.NoError(t, err)
	assert.Equal(t, []Line{{1, 2, 3, 4}}, got.Lines)
}

func TestParseRecord_Malformed(t *testing.T) {
	_, err := ParseRecord(2, []byte("1 2 3\n"))
	assert.ErrorContains(t, err, "expected 4 values")

	_, err = ParseRecord(2, []byte("1 2 x 4\n"))
	assert.Error(t, err)
}

func TestRecordCenter(t *testing.T) {
	_, ok := Record{}.Center()
	assert.False(t, ok)

	rec := Record{Lines: []Line{{0, 720, 100, 432}, {640, 720, 540, 432}}}
	c, ok := rec.Center()
	require.True(t, ok)
	assert.InDelta(t, 320.0, c, 1e-9)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("both")
	require.NoError(t, err)
	assert.Equal(t, PolicyBoth, p)

	p, err = ParsePolicy(" Last ")
	require.NoError(t, err)
	assert.Equal(t, PolicyLast, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyBoth, p)

	_, err = ParsePolicy("first")
	assert.Error(t, err)
}
