package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("not found")

// Session statuses.
const (
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusFailed     = "failed"
)

// Session is one uploaded video and the artifacts derived from it.
type Session struct {
	ID               string    `json:"id"`
	Status           string    `json:"status"`
	VideoPath        string    `json:"video_path"`
	AnnotatedPath    string    `json:"annotated_path,omitempty"`
	LaneCSVPath      string    `json:"lane_csv,omitempty"`
	IntensityCSVPath string    `json:"intensity_csv,omitempty"`
	Frames           int       `json:"frames"`
	Detections       int       `json:"detections"`
	OffsetRows       int       `json:"offset_rows"`
	FPS              float64   `json:"fps"`
	Error            string    `json:"error,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnixSeconds(v float64) time.Time {
	sec := int64(v)
	return time.Unix(sec, int64((v-float64(sec))*1e9)).UTC()
}

// CreateSession inserts s with status processing. CreatedAt and UpdatedAt
// default to now when unset.
func (db *DB) CreateSession(s *Session) error {
	if s.ID == "" {
		return fmt.Errorf("session id is required")
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	if s.Status == "" {
		s.Status = StatusProcessing
	}

	_, err := db.Exec(`
		INSERT INTO sessions (
			session_id, status, video_path, annotated_path, lane_csv_path,
			intensity_csv_path, frames, detections, offset_rows, fps, error,
			created_unix, updated_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Status, s.VideoPath, s.AnnotatedPath, s.LaneCSVPath,
		s.IntensityCSVPath, s.Frames, s.Detections, s.OffsetRows, s.FPS, s.Error,
		unixSeconds(s.CreatedAt), unixSeconds(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create session %s: %w", s.ID, err)
	}
	return nil
}

// UpdateSession overwrites every mutable column of s and bumps UpdatedAt.
func (db *DB) UpdateSession(s *Session) error {
	s.UpdatedAt = time.Now().UTC()
	res, err := db.Exec(`
		UPDATE sessions SET
			status = ?, video_path = ?, annotated_path = ?, lane_csv_path = ?,
			intensity_csv_path = ?, frames = ?, detections = ?, offset_rows = ?,
			fps = ?, error = ?, updated_unix = ?
		WHERE session_id = ?`,
		s.Status, s.VideoPath, s.AnnotatedPath, s.LaneCSVPath,
		s.IntensityCSVPath, s.Frames, s.Detections, s.OffsetRows,
		s.FPS, s.Error, unixSeconds(s.UpdatedAt),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("update session %s: %w", s.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", s.ID, ErrNotFound)
	}
	return nil
}

// FailSession marks a session failed with the given cause.
func (db *DB) FailSession(id string, cause error) error {
	s, err := db.GetSession(id)
	if err != nil {
		return err
	}
	s.Status = StatusFailed
	s.Error = cause.Error()
	return db.UpdateSession(s)
}

const sessionColumns = `session_id, status, video_path, annotated_path, lane_csv_path,
	intensity_csv_path, frames, detections, offset_rows, fps, error,
	created_unix, updated_unix`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		s                    Session
		createdUnix, updUnix float64
	)
	if err := row.Scan(
		&s.ID, &s.Status, &s.VideoPath, &s.AnnotatedPath, &s.LaneCSVPath,
		&s.IntensityCSVPath, &s.Frames, &s.Detections, &s.OffsetRows, &s.FPS, &s.Error,
		&createdUnix, &updUnix,
	); err != nil {
		return nil, err
	}
	s.CreatedAt = fromUnixSeconds(createdUnix)
	s.UpdatedAt = fromUnixSeconds(updUnix)
	return &s, nil
}

// GetSession returns the session with the given id.
func (db *DB) GetSession(id string) (*Session, error) {
	row := db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return s, nil
}

// ListSessions returns up to limit sessions, newest first.
func (db *DB) ListSessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`SELECT `+sessionColumns+` FROM sessions ORDER BY created_unix DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}
