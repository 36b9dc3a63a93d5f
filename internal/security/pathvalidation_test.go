package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	session := filepath.Join(tmpDir, "sessions", "abc123")
	outside := filepath.Join(tmpDir, "outside")
	if err := os.MkdirAll(session, 0755); err != nil {
		t.Fatalf("mkdir session: %v", err)
	}
	if err := os.MkdirAll(outside, 0755); err != nil {
		t.Fatalf("mkdir outside: %v", err)
	}
	link := filepath.Join(session, "lanes")
	if err := os.Symlink(outside, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	tests := []struct {
		name      string
		filePath  string
		safeDir   string
		wantError bool
	}{
		{"artifact in session", filepath.Join(session, "lane.csv"), session, false},
		{"nested artifact not yet created", filepath.Join(session, "frames", "000001.txt"), session, false},
		{"session dir itself", session, session, false},
		{"parent traversal", filepath.Join(session, "..", "other", "lane.csv"), session, true},
		{"relative escape", "../../../etc/passwd", session, true},
		{"absolute outside", "/etc/passwd", session, true},
		{"symlink escape", filepath.Join(link, "000001.txt"), session, true},
		{"symlink itself", link, session, true},
		{"missing safe dir", filepath.Join(tmpDir, "nope", "x"), filepath.Join(tmpDir, "nope"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, tt.safeDir)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}
