package models

// VideoMeta holds the per-video facts the probe derives once per request.
// Sentinel values (-1, -1.0) denote "unknown"; a meta carrying sentinels
// for frames or duration must not be used for caching decisions.
type VideoMeta struct {
	Frames     int64   `json:"frames"`
	Duration   float64 `json:"duration"`
	FPS        float64 `json:"fps"`
	SubStreams int     `json:"nsubs"`
}

// UnknownMeta returns a VideoMeta with all fields set to their sentinel
// values.
func UnknownMeta() VideoMeta {
	return VideoMeta{Frames: -1, Duration: -1, FPS: -1.0, SubStreams: -1}
}

// Valid reports whether the meta is usable for caching and extraction.
func (m VideoMeta) Valid() bool {
	return m.Frames >= 0 && m.Duration > 0
}
