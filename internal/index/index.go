// Package index round-trips the extraction manifest to and from a
// per-video thumbnail directory and decides reuse vs. rebuild.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/irrwahn/ffpreview/internal/logging"
	"github.com/irrwahn/ffpreview/pkg/models"
)

// Cache loads, validates and saves manifests.
type Cache struct {
	log *logging.Logger
}

// New creates a Cache.
func New(log *logging.Logger) *Cache {
	return &Cache{log: log}
}

// Load reads the manifest from a thumbnail directory. A missing,
// unreadable or unparsable file is reported as absent, never as an
// error; the caller rebuilds silently.
func (c *Cache) Load(dir string) (*models.Manifest, bool) {
	path := filepath.Join(dir, models.IndexFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Debugf("%s: %v", path, err)
		}
		return nil, false
	}
	var m models.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		c.log.Debugf("%s: %v", path, err)
		return nil, false
	}
	return &m, true
}

// Save serializes the manifest as pretty-printed JSON into the
// thumbnail directory, stamping the creation time. The file is written
// in one operation, fully formed or not at all.
func (c *Cache) Save(dir string, m *models.Manifest) error {
	m.Date = time.Now().Unix()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	path := filepath.Join(dir, models.IndexFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Validate reports whether an existing manifest satisfies the candidate
// parameter set, with a short reason when it does not. In reuse mode the
// method-specific fields are not compared.
//
// Durations are compared truncated to whole seconds: frame-accurate
// duration drifts between probe strategies and tool versions, and exact
// equality would defeat caching almost always. The tolerance is a
// heuristic, tunable via durationsMatch.
func Validate(candidate, existing *models.Manifest, reuse bool) (bool, string) {
	switch {
	case existing == nil:
		return false, "absent"
	case existing.Name != candidate.Name:
		return false, "name"
	case !durationsMatch(existing.Duration, candidate.Duration):
		return false, "duration"
	case existing.Start != candidate.Start:
		return false, "start"
	case existing.End != candidate.End:
		return false, "end"
	case existing.Count != len(existing.Entries):
		return false, "truncated"
	}
	if reuse {
		return true, ""
	}
	switch {
	case existing.Width != candidate.Width:
		return false, "width"
	case existing.SubStreams != candidate.SubStreams:
		return false, "nsubs"
	case existing.BurnSubIndex != candidate.BurnSubIndex:
		return false, "subtitles"
	case existing.Method != candidate.Method:
		return false, "method"
	}
	if !methodParamMatch(candidate, existing) {
		return false, "method_param"
	}
	return true, ""
}

func durationsMatch(a, b float64) bool {
	return int64(a) == int64(b)
}

// methodParamMatch compares only the parameter belonging to the
// candidate's method.
func methodParamMatch(candidate, existing *models.Manifest) bool {
	switch candidate.Method {
	case models.MethodFrameSkip:
		return existing.FrameSkip != nil && candidate.FrameSkip != nil &&
			*existing.FrameSkip == *candidate.FrameSkip
	case models.MethodTimeSkip:
		return existing.TimeSkip != nil && candidate.TimeSkip != nil &&
			*existing.TimeSkip == *candidate.TimeSkip
	case models.MethodScene:
		return existing.SceneThresh != nil && candidate.SceneThresh != nil &&
			*existing.SceneThresh == *candidate.SceneThresh
	case models.MethodCustomVF:
		return existing.CustomVF != nil && candidate.CustomVF != nil &&
			*existing.CustomVF == *candidate.CustomVF
	}
	return true
}
