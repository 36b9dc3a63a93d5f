// Package security guards session artifact paths against escaping their
// session directory.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory reports an error when filePath, after cleaning
// and symlink resolution, does not lie inside safeDir. filePath need not
// exist yet; its nearest existing ancestor is resolved instead.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	target, err := canonical(filePath, false)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	root, err := canonical(safeDir, true)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory: %w", err)
	}

	rel, err := filepath.Rel(root, target)
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// canonical returns the absolute, symlink-free form of p. With mustExist
// unset, missing trailing components are re-joined onto the deepest
// ancestor that resolves.
func canonical(p string, mustExist bool) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	} else if mustExist {
		return "", err
	}

	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rest, _ := filepath.Rel(dir, abs)
			return filepath.Join(resolved, rest), nil
		}
		if dir == filepath.Dir(dir) {
			return abs, nil
		}
	}
}
