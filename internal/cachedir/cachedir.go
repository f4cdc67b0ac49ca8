// Package cachedir manages the per-video thumbnail directories under the
// configured cache root and safety-gates every destructive operation on
// them.
package cachedir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/irrwahn/ffpreview/internal/logging"
	"github.com/irrwahn/ffpreview/pkg/models"
)

// Subdir is the directory created under the configured root to hold all
// per-video thumbnail directories.
const Subdir = "ffpreview_thumbs"

// ErrOutsideRoot is returned when a destructive operation targets a
// directory whose parent is not the managed cache root.
var ErrOutsideRoot = errors.New("directory is outside the cache root")

// thumbFileRe matches the fixed thumbnail naming pattern; only matching
// files (and the index) are ever deleted during a clear.
var thumbFileRe = regexp.MustCompile(`^\d{8}\.png$`)

// Manager owns the cache root directory.
type Manager struct {
	root string
	log  *logging.Logger
}

// New creates a Manager rooted under baseDir. The ffpreview_thumbs
// suffix is appended unless baseDir already ends with it.
func New(baseDir string, log *logging.Logger) (*Manager, error) {
	root, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache root: %w", err)
	}
	if filepath.Base(root) != Subdir {
		root = filepath.Join(root, Subdir)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache root: %w", err)
	}
	return &Manager{root: root, log: log}, nil
}

// Root returns the managed cache root.
func (m *Manager) Root() string {
	return m.root
}

// Dir returns the thumbnail directory for a video file. The directory
// name is the video's base file name.
func (m *Manager) Dir(videoPath string) string {
	return filepath.Join(m.root, filepath.Base(videoPath))
}

// Clear prepares a thumbnail directory for a fresh extraction: it
// creates the directory if absent and deletes the index file plus every
// file matching the thumbnail naming pattern. Directories whose parent
// is not the cache root are refused outright. Individual file deletion
// failures are logged and skipped.
func (m *Manager) Clear(dir string) error {
	if filepath.Dir(dir) != m.root {
		m.log.Errorf("clearing of directory %s denied", dir)
		return fmt.Errorf("%w: %s", ErrOutsideRoot, dir)
	}
	m.log.Debugf("clearing out %s", dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	idx := filepath.Join(dir, models.IndexFileName)
	if err := os.Remove(idx); err != nil && !os.IsNotExist(err) {
		m.log.Warnf("failed to remove %s: %v", idx, err)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list thumbnail directory: %w", err)
	}
	for _, f := range files {
		if !thumbFileRe.MatchString(f.Name()) {
			continue
		}
		path := filepath.Join(dir, f.Name())
		if err := os.Remove(path); err != nil {
			m.log.Warnf("failed to remove %s: %v", path, err)
		}
	}
	return nil
}

// Remove deletes a thumbnail directory entirely: first a safety-gated
// clear, then the directory itself if nothing foreign is left in it.
func (m *Manager) Remove(dir string) error {
	if err := m.Clear(dir); err != nil {
		return err
	}
	if err := os.Remove(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	return nil
}

// IsThumbFile reports whether a file name matches the fixed 8-digit
// thumbnail naming pattern.
func IsThumbFile(name string) bool {
	return thumbFileRe.MatchString(name)
}
