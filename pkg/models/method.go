package models

import "fmt"

// MethodName identifies a frame selection strategy in configuration and
// in the persisted manifest.
type MethodName string

const (
	MethodKeyframes MethodName = "iframe"
	MethodFrameSkip MethodName = "skip"
	MethodTimeSkip  MethodName = "time"
	MethodScene     MethodName = "scene"
	MethodCustomVF  MethodName = "customvf"
)

// Method is a frame selection strategy together with its single
// method-specific parameter.
type Method interface {
	Name() MethodName
}

// Keyframes selects frames flagged as sync/reference frames.
type Keyframes struct{}

// FrameSkip selects every Nth frame.
type FrameSkip struct {
	N int
}

// TimeSkip selects one frame per interval; the effective frame stride is
// derived from the video's fps at extraction time.
type TimeSkip struct {
	Seconds float64
}

// SceneChange selects frames whose scene-change score exceeds Threshold
// (0 < Threshold < 1).
type SceneChange struct {
	Threshold float64
}

// CustomFilter uses the supplied ffmpeg filter expression verbatim.
type CustomFilter struct {
	Expr string
}

func (Keyframes) Name() MethodName    { return MethodKeyframes }
func (FrameSkip) Name() MethodName    { return MethodFrameSkip }
func (TimeSkip) Name() MethodName     { return MethodTimeSkip }
func (SceneChange) Name() MethodName  { return MethodScene }
func (CustomFilter) Name() MethodName { return MethodCustomVF }

// ParseMethod builds a Method from a method name and the raw parameter
// values carried by configuration or CLI flags. Only the parameter
// belonging to the named method is consulted.
func ParseMethod(name string, frameSkip int, timeSkip, sceneThresh float64, customVF string) (Method, error) {
	switch MethodName(name) {
	case MethodKeyframes:
		return Keyframes{}, nil
	case MethodFrameSkip:
		if frameSkip < 1 {
			return nil, fmt.Errorf("frame skip must be >= 1, got %d", frameSkip)
		}
		return FrameSkip{N: frameSkip}, nil
	case MethodTimeSkip:
		if timeSkip <= 0 {
			return nil, fmt.Errorf("time skip must be positive, got %g", timeSkip)
		}
		return TimeSkip{Seconds: timeSkip}, nil
	case MethodScene:
		if sceneThresh <= 0 || sceneThresh >= 1 {
			return nil, fmt.Errorf("scene threshold must be in (0,1), got %g", sceneThresh)
		}
		return SceneChange{Threshold: sceneThresh}, nil
	case MethodCustomVF:
		if customVF == "" {
			return nil, fmt.Errorf("custom filter expression is empty")
		}
		return CustomFilter{Expr: customVF}, nil
	}
	return nil, fmt.Errorf("unknown selection method %q", name)
}
