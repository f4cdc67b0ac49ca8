package models

import (
	"encoding/json"
	"fmt"
	"path/filepath"
)

const (
	// IndexFileName is the manifest file name inside a thumbnail directory.
	IndexFileName = "ffpreview.idx"

	// ThumbPattern is the printf pattern for thumbnail file names; it also
	// serves as the ffmpeg output template.
	ThumbPattern = "%08d.png"

	// ToolVersion is written into every manifest this build produces.
	ToolVersion = "0.4"
)

// ThumbFileName returns the deterministic file name for the i-th
// thumbnail (1-based).
func ThumbFileName(i int) string {
	return fmt.Sprintf(ThumbPattern, i)
}

// Entry describes one extracted thumbnail. On disk it is encoded as a
// positional 3-element array [index, filename, timestamp] to keep the
// manifest compact. The timestamp stays a string to preserve the exact
// decimal precision emitted by the extractor.
type Entry struct {
	Index     int
	Filename  string
	Timestamp string
}

// MarshalJSON encodes the entry as [index, "00000001.png", "12.345678"].
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]any{e.Index, e.Filename, e.Timestamp})
}

// UnmarshalJSON decodes the positional array form.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("thumbnail entry: want 3 elements, got %d", len(raw))
	}
	idx, ok := raw[0].(float64)
	if !ok {
		return fmt.Errorf("thumbnail entry: index is %T, not a number", raw[0])
	}
	name, ok := raw[1].(string)
	if !ok {
		return fmt.Errorf("thumbnail entry: filename is %T, not a string", raw[1])
	}
	ts, ok := raw[2].(string)
	if !ok {
		return fmt.Errorf("thumbnail entry: timestamp is %T, not a string", raw[2])
	}
	e.Index = int(idx)
	e.Filename = name
	e.Timestamp = ts
	return nil
}

// Manifest is the persisted description of one completed extraction run.
// Field order matches the on-disk key order written by earlier versions
// of the tool.
type Manifest struct {
	Name         string     `json:"name"`
	Path         string     `json:"path"`
	Frames       int64      `json:"frames"`
	Duration     float64    `json:"duration"`
	FPS          float64    `json:"fps"`
	SubStreams   int        `json:"nsubs"`
	Start        float64    `json:"start"`
	End          float64    `json:"end"`
	Count        int        `json:"count"`
	Width        int        `json:"width"`
	Method       MethodName `json:"method"`
	FrameSkip    *int       `json:"frame_skip,omitempty"`
	TimeSkip     *float64   `json:"time_skip,omitempty"`
	SceneThresh  *float64   `json:"scene_thresh,omitempty"`
	CustomVF     *string    `json:"customvf,omitempty"`
	BurnSubIndex int        `json:"addss"`
	Version      string     `json:"ffpreview"`
	Date         int64      `json:"date"`
	Entries      []Entry    `json:"th"`
}

// NewManifest constructs the candidate manifest for an extraction
// request. Count and Entries stay empty until extraction succeeds. A
// burn-in index at or beyond the probed subtitle stream count degrades
// to -1 (no burn-in).
func NewManifest(params ExtractionParams, meta VideoMeta) *Manifest {
	m := &Manifest{
		Name:         filepath.Base(params.VideoPath),
		Path:         filepath.Dir(params.VideoPath),
		Frames:       meta.Frames,
		Duration:     meta.Duration,
		FPS:          meta.FPS,
		SubStreams:   meta.SubStreams,
		Start:        params.Start,
		End:          params.End,
		Width:        params.Width,
		Method:       params.Method.Name(),
		BurnSubIndex: params.BurnSubIndex,
		Version:      ToolVersion,
		Entries:      []Entry{},
	}
	switch v := params.Method.(type) {
	case FrameSkip:
		m.FrameSkip = &v.N
	case TimeSkip:
		m.TimeSkip = &v.Seconds
	case SceneChange:
		m.SceneThresh = &v.Threshold
	case CustomFilter:
		m.CustomVF = &v.Expr
	}
	if m.BurnSubIndex >= m.SubStreams {
		m.BurnSubIndex = -1
	}
	return m
}

// Meta returns the video facts recorded in the manifest.
func (m *Manifest) Meta() VideoMeta {
	return VideoMeta{
		Frames:     m.Frames,
		Duration:   m.Duration,
		FPS:        m.FPS,
		SubStreams: m.SubStreams,
	}
}

// SelectionMethod reconstructs the tagged method from the flat manifest
// fields. The bool result is false when the method name is unknown or
// its parameter is missing.
func (m *Manifest) SelectionMethod() (Method, bool) {
	switch m.Method {
	case MethodKeyframes:
		return Keyframes{}, true
	case MethodFrameSkip:
		if m.FrameSkip == nil {
			return nil, false
		}
		return FrameSkip{N: *m.FrameSkip}, true
	case MethodTimeSkip:
		if m.TimeSkip == nil {
			return nil, false
		}
		return TimeSkip{Seconds: *m.TimeSkip}, true
	case MethodScene:
		if m.SceneThresh == nil {
			return nil, false
		}
		return SceneChange{Threshold: *m.SceneThresh}, true
	case MethodCustomVF:
		if m.CustomVF == nil {
			return nil, false
		}
		return CustomFilter{Expr: *m.CustomVF}, true
	}
	return nil, false
}

// SelfConsistent reports whether Count matches the entry list and the
// entry indices form the strict sequence 1..Count.
func (m *Manifest) SelfConsistent() bool {
	if m.Count != len(m.Entries) {
		return false
	}
	for i, e := range m.Entries {
		if e.Index != i+1 {
			return false
		}
	}
	return true
}

// SourcePath returns the recorded location of the original video file.
func (m *Manifest) SourcePath() string {
	return filepath.Join(m.Path, m.Name)
}
