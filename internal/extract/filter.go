package extract

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/irrwahn/ffpreview/pkg/models"
)

// BuildFilter builds the ffmpeg -vf expression for one extraction run:
// the frame selection stage for the given method, a showinfo stage that
// makes ffmpeg emit one pts_time line per selected frame, scaling to the
// target width, and an optional subtitle burn-in stage.
//
// Burn-in is skipped when a trim start is set: burning subtitles into a
// time-shifted clip would need re-timed subtitle streams, which the
// external tool does not do.
func BuildFilter(method models.Method, fps float64, width int, videoPath string, burnSubIndex int, start float64) string {
	var flt string
	switch v := method.(type) {
	case models.SceneChange:
		flt = `select=gt(scene\,` + formatFloat(v.Threshold) + `)`
	case models.FrameSkip:
		flt = `select=not(mod(n\,` + strconv.Itoa(v.N) + `))`
	case models.TimeSkip:
		flt = `select=not(mod(n\,` + strconv.Itoa(frameStride(v.Seconds, fps)) + `))`
	case models.CustomFilter:
		flt = v.Expr
	default: // keyframes
		flt = `select=eq(pict_type\,I)`
	}
	flt += ",showinfo,scale=" + strconv.Itoa(width) + ":-1"
	if burnSubIndex >= 0 && start == 0 {
		flt += ",subtitles=" + escapeFilterPath(videoPath) + ":si=" + strconv.Itoa(burnSubIndex)
	}
	return flt
}

// frameStride converts a per-seconds interval into an effective frame
// stride, never below 1.
func frameStride(seconds, fps float64) int {
	stride := int(math.Round(seconds * fps))
	if stride < 1 {
		stride = 1
	}
	return stride
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// escapeFilterPath escapes a file path for use inside an ffmpeg filter
// graph. See the notes on filtergraph escaping in the ffmpeg-filters
// documentation: the path passes through two levels of escaping, so
// quotes and separators end up escaped twice.
func escapeFilterPath(s string) string {
	s = strings.ReplaceAll(s, "'", `\'`)
	s = strings.ReplaceAll(s, ":", `\:`)
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", `\'`)
	s = strings.ReplaceAll(s, "[", `\[`)
	s = strings.ReplaceAll(s, "]", `\]`)
	return s
}

// BuildArgs assembles the full ffmpeg argument vector for an extraction
// run writing numbered images into outTemplate.
func BuildArgs(params models.ExtractionParams, filter, outTemplate string) []string {
	args := []string{"-loglevel", "info", "-hide_banner", "-y"}
	if params.Start > 0 {
		args = append(args, "-ss", formatFloat(params.Start))
	}
	if params.End > 0 {
		args = append(args, "-to", formatFloat(params.End))
	}
	args = append(args,
		"-i", params.VideoPath,
		"-vf", filter,
		"-vsync", "vfr",
		outTemplate,
	)
	return args
}

// OutTemplate returns the ffmpeg output path template for a thumbnail
// directory.
func OutTemplate(dir string) string {
	return filepath.Join(dir, models.ThumbPattern)
}
