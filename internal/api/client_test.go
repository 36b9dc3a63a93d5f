package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/drivecoach/internal/db"
	"github.com/banshee-data/drivecoach/internal/httputil"
)

func TestClientRoundTrip(t *testing.T) {
	runner := &fakeRunner{}
	srv, _, _ := newTestServer(t, runner)
	ts := httptest.NewServer(LoggingMiddleware(srv.ServeMux()))
	defer ts.Close()

	video := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("frames"), 0o644))

	c := NewClient(ts.URL+"/", nil)
	ctx := context.Background()

	resp, err := c.Upload(ctx, video)
	require.NoError(t, err)
	assert.Equal(t, "aaaa", resp.ID)
	assert.Equal(t, "frames", string(runner.video))

	sess, err := c.Session(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusComplete, sess.Status)

	list, err := c.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "aaaa", list[0].ID)

	_, err = c.Session(ctx, "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}

func TestClientWithMockHTTP(t *testing.T) {
	mock := httputil.NewMockHTTPClient().
		AddResponse(http.StatusOK, `{"id":"abc","status":"failed","error":"no frames"}`).
		AddResponse(http.StatusBadGateway, "upstream down")

	c := NewClient("http://coach.local", mock)

	sess, err := c.Session(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, db.StatusFailed, sess.Status)
	assert.Equal(t, "no frames", sess.Error)

	_, err = c.Sessions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")

	require.Equal(t, 2, mock.RequestCount())
	assert.Equal(t, "/sessions/abc", mock.GetRequest(0).URL.Path)
	assert.Equal(t, http.MethodGet, mock.GetRequest(1).Method)
}
