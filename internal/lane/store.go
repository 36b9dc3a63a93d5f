package lane

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/banshee-data/drivecoach/internal/fsutil"
)

// MetaFileName is the sidecar describing the source video of a record
// directory.
const MetaFileName = "meta.json"

// RecordFileName returns the zero-padded per-frame file name.
func RecordFileName(frame int) string {
	return fmt.Sprintf("%06d.txt", frame)
}

// VideoMeta describes the video a record directory was extracted from.
type VideoMeta struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
	Frames int     `json:"frames"`
}

// Validate checks that offsets and timestamps can be computed from m.
func (m VideoMeta) Validate() error {
	if m.FPS <= 0 {
		return fmt.Errorf("invalid fps %v", m.FPS)
	}
	if m.Width <= 0 {
		return fmt.Errorf("invalid frame width %d", m.Width)
	}
	if m.Frames < 0 {
		return fmt.Errorf("invalid frame count %d", m.Frames)
	}
	return nil
}

// RecordStore keeps one text file per frame that had a detection. A missing
// file means no lane was found in that frame.
type RecordStore struct {
	fs  fsutil.FileSystem
	dir string
}

// NewRecordStore returns a store rooted at dir.
func NewRecordStore(fsys fsutil.FileSystem, dir string) *RecordStore {
	return &RecordStore{fs: fsys, dir: dir}
}

// Dir returns the store's directory.
func (s *RecordStore) Dir() string { return s.dir }

// Init creates the record directory and removes the records and sidecar of
// any earlier extraction into it. Other files are left alone.
func (s *RecordStore) Init() error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create record dir %s: %w", s.dir, err)
	}
	names, err := s.fs.ListFiles(s.dir)
	if err != nil {
		return fmt.Errorf("list record dir %s: %w", s.dir, err)
	}
	for _, name := range names {
		if name != MetaFileName && !isRecordFileName(name) {
			continue
		}
		if err := s.fs.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale record %s: %w", name, err)
		}
	}
	return nil
}

func isRecordFileName(name string) bool {
	digits, ok := strings.CutSuffix(name, ".txt")
	if !ok || len(digits) < 6 {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Put writes a record. Empty records are not written.
func (s *RecordStore) Put(r Record) error {
	if r.Empty() {
		return nil
	}
	data, err := r.MarshalText()
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, RecordFileName(r.Frame))
	if err := s.fs.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write record %s: %w", path, err)
	}
	return nil
}

// Get loads the record for frame. It reports false when the frame has no
// record or the record holds no lines.
func (s *RecordStore) Get(frame int) (Record, bool, error) {
	data, err := s.fs.ReadFile(filepath.Join(s.dir, RecordFileName(frame)))
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	rec, err := ParseRecord(frame, data)
	if err != nil {
		return Record{}, false, err
	}
	return rec, !rec.Empty(), nil
}

// PutMeta writes the meta.json sidecar.
func (s *RecordStore) PutMeta(m VideoMeta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return s.fs.WriteFile(filepath.Join(s.dir, MetaFileName), data, 0o644)
}

// Meta reads the meta.json sidecar.
func (s *RecordStore) Meta() (VideoMeta, error) {
	var m VideoMeta
	data, err := s.fs.ReadFile(filepath.Join(s.dir, MetaFileName))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse %s: %w", MetaFileName, err)
	}
	return m, nil
}
