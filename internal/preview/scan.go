package preview

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/irrwahn/ffpreview/internal/cachedir"
	"github.com/irrwahn/ffpreview/pkg/models"
)

// CacheEntry summarizes one per-video thumbnail directory for the
// thumbnail manager.
type CacheEntry struct {
	Dir        string           `json:"dir"`
	Manifest   *models.Manifest `json:"manifest,omitempty"`
	VideoPath  string           `json:"video_path,omitempty"`
	ThumbCount int              `json:"thumb_count"`
	ThumbBytes int64            `json:"thumb_bytes"`
	ModTime    int64            `json:"mtime"`
}

// Scan enumerates every thumbnail directory under the cache root,
// reading manifests where present. A corrupt or missing manifest leaves
// Manifest nil; the entry still reports the thumbnail files found.
// VideoPath is set only when the recorded source video still exists.
func (s *Service) Scan(progress func(done, total int)) ([]CacheEntry, error) {
	root := s.dirs.Root()
	dirs, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache root: %w", err)
	}

	entries := make([]CacheEntry, 0, len(dirs))
	for i, d := range dirs {
		if progress != nil && i%20 == 0 {
			progress(i, len(dirs))
		}
		if !d.IsDir() {
			continue
		}
		path := filepath.Join(root, d.Name())
		entry := CacheEntry{Dir: d.Name()}

		if m, ok := s.cache.Load(path); ok {
			m.Entries = nil // the manager view does not need per-thumbnail data
			entry.Manifest = m
			if src := m.SourcePath(); fileExists(src) {
				entry.VideoPath = src
			}
			entry.ModTime = m.Date
		} else if fi, err := d.Info(); err == nil {
			entry.ModTime = fi.ModTime().Unix()
		}

		files, err := os.ReadDir(path)
		if err != nil {
			s.log.Warnf("failed to list %s: %v", path, err)
		}
		for _, f := range files {
			if !cachedir.IsThumbFile(f.Name()) {
				continue
			}
			entry.ThumbCount++
			if fi, err := f.Info(); err == nil {
				entry.ThumbBytes += fi.Size()
			}
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Dir < entries[j].Dir })
	return entries, nil
}

// Delete removes one named thumbnail directory under the cache root.
// The name must be a bare directory name, not a path.
func (s *Service) Delete(name string) error {
	if !validCacheName(name) {
		return fmt.Errorf("invalid cache directory name %q", name)
	}
	return s.dirs.Remove(filepath.Join(s.dirs.Root(), name))
}

// Manifest loads the manifest of one named thumbnail directory under
// the cache root.
func (s *Service) Manifest(name string) (*models.Manifest, bool) {
	if !validCacheName(name) {
		return nil, false
	}
	return s.cache.Load(filepath.Join(s.dirs.Root(), name))
}

// ThumbPath resolves a thumbnail image inside a named cache directory,
// rejecting anything that is not a bare directory name plus a file
// matching the thumbnail naming pattern.
func (s *Service) ThumbPath(name, file string) (string, error) {
	if !validCacheName(name) {
		return "", fmt.Errorf("invalid cache directory name %q", name)
	}
	if !cachedir.IsThumbFile(file) {
		return "", fmt.Errorf("invalid thumbnail file name %q", file)
	}
	return filepath.Join(s.dirs.Root(), name, file), nil
}

// validCacheName accepts only bare directory names, never paths or the
// dot entries.
func validCacheName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsRune(name, os.PathSeparator) && name == filepath.Base(name)
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
