// Package fileutil provides request-scoped temp artifacts and atomic writes.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Sentinel errors for file utility operations.
var (
	ErrSuffixPathTraversal = errors.New("suffix contains path separator or null byte")
	ErrCleanup             = errors.New("failed to remove temp artifact")
)

// Artifacts tracks the temp files of one render request. Files are named
// {id}{suffix} inside dir. Cleanup removes only the paths this set handed
// out, so requests whose ids share a prefix never touch each other.
type Artifacts struct {
	dir    string
	id     string
	retain bool

	mu    sync.Mutex
	paths []string
}

// NewArtifacts returns an artifact set rooted at dir. An empty dir means
// os.TempDir().
func NewArtifacts(dir, id string, retain bool) *Artifacts {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Artifacts{dir: dir, id: id, retain: retain}
}

// ID returns the request id used as filename prefix.
func (a *Artifacts) ID() string { return a.id }

// Dir returns the directory holding the artifacts.
func (a *Artifacts) Dir() string { return a.dir }

// Retained reports whether Cleanup keeps files on disk.
func (a *Artifacts) Retained() bool { return a.retain }

// Path returns the path for suffix without creating the file. The path is
// owned by the set from then on.
func (a *Artifacts) Path(suffix string) (string, error) {
	if err := ValidateSuffix(suffix); err != nil {
		return "", err
	}
	path := filepath.Join(a.dir, a.id+suffix)

	a.mu.Lock()
	defer a.mu.Unlock()
	if !slices.Contains(a.paths, path) {
		a.paths = append(a.paths, path)
	}
	return path, nil
}

// Write stores data under suffix and returns its path.
func (a *Artifacts) Write(suffix string, data []byte) (string, error) {
	path, err := a.Path(suffix)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing temp artifact: %w", err)
	}
	return path, nil
}

// Cleanup removes the owned paths unless the set is retained. Files
// already gone count as removed. Other failures are joined and returned
// wrapped in ErrCleanup.
func (a *Artifacts) Cleanup() error {
	if a.retain {
		return nil
	}

	a.mu.Lock()
	paths := a.paths
	a.paths = nil
	a.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("%w: %v", ErrCleanup, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateSuffix checks that the suffix is safe for use in artifact names.
func ValidateSuffix(suffix string) error {
	if strings.ContainsAny(suffix, "/\\\x00") {
		return ErrSuffixPathTraversal
	}
	return nil
}

// WriteAtomic writes data to a temp file in the destination directory and
// renames it over path. The temp file lives next to path so the rename
// never crosses devices.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "tmp-"+uuid.NewString())

	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
