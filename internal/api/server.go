// Package api serves the upload/session HTTP interface: a video is uploaded,
// the pipeline runs against it and the session record points at the
// resulting artifacts.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/drivecoach/internal/db"
	"github.com/banshee-data/drivecoach/internal/httputil"
	"github.com/banshee-data/drivecoach/internal/monitoring"
	"github.com/banshee-data/drivecoach/internal/pipeline"
	"github.com/banshee-data/drivecoach/internal/security"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// DefaultMaxUpload bounds the multipart body accepted by /process.
const DefaultMaxUpload = 2 << 30

// SessionStore persists upload sessions.
type SessionStore interface {
	CreateSession(s *db.Session) error
	UpdateSession(s *db.Session) error
	GetSession(id string) (*db.Session, error)
	FailSession(id string, cause error) error
	ListSessions(limit int) ([]db.Session, error)
}

type Server struct {
	store     SessionStore
	runner    pipeline.Runner
	baseDir   string
	maxUpload int64
	newID     func() string
}

// NewSessionID returns a random 32-character hex id.
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewServer returns a server storing session directories under baseDir.
func NewServer(store SessionStore, runner pipeline.Runner, baseDir string) *Server {
	return &Server{
		store:     store,
		runner:    runner,
		baseDir:   baseDir,
		maxUpload: DefaultMaxUpload,
		newID:     NewSessionID,
	}
}

// SetMaxUpload overrides the upload size limit in bytes.
func (s *Server) SetMaxUpload(n int64) { s.maxUpload = n }

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/process", s.process)
	mux.HandleFunc("/sessions", s.listSessions)
	mux.HandleFunc("/sessions/{id}", s.getSession)
	return mux
}

// ProcessResponse is the body returned by a successful /process call.
type ProcessResponse struct {
	ID      string `json:"id"`
	LaneCSV string `json:"lane_csv"`
}

func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	upload, _, err := r.FormFile("video")
	if err != nil {
		httputil.BadRequest(w, "missing video upload")
		return
	}
	defer upload.Close()

	id := s.newID()
	artifacts, err := s.prepareSession(id, upload)
	if err != nil {
		monitoring.Logf("session %s: %v", id, err)
		httputil.InternalServerError(w, "failed to store upload")
		return
	}

	sess := &db.Session{
		ID:               id,
		Status:           db.StatusProcessing,
		VideoPath:        artifacts.Video,
		AnnotatedPath:    artifacts.Annotated,
		LaneCSVPath:      artifacts.LaneCSV,
		IntensityCSVPath: artifacts.IntensityCSV,
	}
	if err := s.store.CreateSession(sess); err != nil {
		monitoring.Logf("session %s: %v", id, err)
		httputil.InternalServerError(w, "failed to create session")
		return
	}

	res, err := s.runner.Run(r.Context(), artifacts)
	if err != nil {
		monitoring.Logf("session %s: pipeline failed: %v", id, err)
		if ferr := s.store.FailSession(id, err); ferr != nil {
			monitoring.Logf("session %s: %v", id, ferr)
		}
		httputil.InternalServerError(w, fmt.Sprintf("processing failed: %v", err))
		return
	}

	sess.Status = db.StatusComplete
	sess.Frames = res.Meta.Frames
	sess.FPS = res.Meta.FPS
	sess.Detections = res.Detections
	sess.OffsetRows = res.OffsetRows
	if err := s.store.UpdateSession(sess); err != nil {
		monitoring.Logf("session %s: %v", id, err)
	}

	httputil.WriteJSONOK(w, ProcessResponse{ID: id, LaneCSV: artifacts.LaneCSV})
}

// prepareSession creates the session directory and stores the upload as
// its source video.
func (s *Server) prepareSession(id string, upload io.Reader) (pipeline.Artifacts, error) {
	dir := filepath.Join(s.baseDir, id)
	if err := security.ValidatePathWithinDirectory(dir, s.baseDir); err != nil {
		return pipeline.Artifacts{}, err
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		return pipeline.Artifacts{}, err
	}

	a := pipeline.NewArtifacts(dir)
	if err := a.Validate(); err != nil {
		return a, err
	}

	f, err := os.Create(a.Video)
	if err != nil {
		return a, err
	}
	if _, err := io.Copy(f, upload); err != nil {
		f.Close()
		return a, fmt.Errorf("write upload: %w", err)
	}
	return a, f.Close()
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}
	sessions, err := s.store.ListSessions(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, sessions)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	sess, err := s.store.GetSession(r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, "session not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, sess)
}
