package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_RoundTrip(t *testing.T) {
	osfs := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "labels", "nested")

	if err := osfs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	path := filepath.Join(dir, "000001.txt")
	if osfs.Exists(path) {
		t.Fatal("file should not exist yet")
	}
	if err := osfs.WriteFile(path, []byte("1 2 3 4\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := osfs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "1 2 3 4\n" {
		t.Errorf("ReadFile = %q", data)
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.WriteFile("/labels/000000.txt", []byte("x"), 0644); err == nil {
		t.Error("WriteFile into a missing directory should fail")
	}

	if err := mfs.MkdirAll("/labels", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if !mfs.Exists("/labels") {
		t.Error("directory should exist after MkdirAll")
	}

	data := []byte("100 480 120 288\n")
	if err := mfs.WriteFile("/labels/000000.txt", data, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data[0] = 'X'

	got, err := mfs.ReadFile("/labels/000000.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "100 480 120 288\n" {
		t.Errorf("stored data should be copied, got %q", got)
	}
	if mfs.Files() != 1 {
		t.Errorf("Files() = %d, want 1", mfs.Files())
	}
}

func TestMemoryFileSystem_ReadMissing(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_, err := mfs.ReadFile("/nope.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestListFilesAndRemove(t *testing.T) {
	osDir := filepath.Join(t.TempDir(), "labels")
	filesystems := map[string]struct {
		fsys FileSystem
		dir  string
	}{
		"os":     {OSFileSystem{}, osDir},
		"memory": {NewMemoryFileSystem(), "/labels"},
	}
	for name, tc := range filesystems {
		t.Run(name, func(t *testing.T) {
			if _, err := tc.fsys.ListFiles(tc.dir); !errors.Is(err, fs.ErrNotExist) {
				t.Errorf("ListFiles on a missing dir: expected fs.ErrNotExist, got %v", err)
			}
			if err := tc.fsys.MkdirAll(filepath.Join(tc.dir, "sub"), 0755); err != nil {
				t.Fatalf("MkdirAll failed: %v", err)
			}
			for _, f := range []string{"000002.txt", "000001.txt", "sub/000009.txt"} {
				if err := tc.fsys.WriteFile(filepath.Join(tc.dir, f), []byte("x"), 0644); err != nil {
					t.Fatalf("WriteFile %s failed: %v", f, err)
				}
			}

			names, err := tc.fsys.ListFiles(tc.dir)
			if err != nil {
				t.Fatalf("ListFiles failed: %v", err)
			}
			if len(names) != 2 || names[0] != "000001.txt" || names[1] != "000002.txt" {
				t.Errorf("ListFiles = %v, want [000001.txt 000002.txt]", names)
			}

			if err := tc.fsys.Remove(filepath.Join(tc.dir, "000001.txt")); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
			if tc.fsys.Exists(filepath.Join(tc.dir, "000001.txt")) {
				t.Error("file should be gone after Remove")
			}
			if err := tc.fsys.Remove(filepath.Join(tc.dir, "000001.txt")); !errors.Is(err, fs.ErrNotExist) {
				t.Errorf("second Remove: expected fs.ErrNotExist, got %v", err)
			}
		})
	}
}
