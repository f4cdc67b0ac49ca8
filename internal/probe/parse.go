package probe

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/irrwahn/ffpreview/internal/timefmt"
)

// progressRe matches the per-line progress markers ffmpeg prints while
// decoding, e.g. "frame=  123 fps=0.0 ... time=00:01:02.34 ...".
var progressRe = regexp.MustCompile(`^frame=\s*(\d+).*time=\s*(\d+:\d+:\d+(?:\.\d+)?)`)

// ScanProgress scans decoder diagnostic output for frame/time progress
// markers. The markers carry cumulative totals, so the last one seen
// holds the final counts.
func ScanProgress(out string) (frames int64, duration float64, ok bool) {
	for _, line := range strings.Split(out, "\n") {
		m := progressRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		f, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		d, err := timefmt.Parse(m[2])
		if err != nil {
			continue
		}
		frames, duration, ok = f, d, true
	}
	return frames, duration, ok
}

// parseFrac parses an ffprobe rational like "30000/1001"; a plain number
// is accepted as-is.
func parseFrac(s string) (float64, error) {
	num, den, found := strings.Cut(s, "/")
	if !found {
		return strconv.ParseFloat(s, 64)
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, err
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, fmt.Errorf("zero denominator in %q", s)
	}
	return n / d, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
