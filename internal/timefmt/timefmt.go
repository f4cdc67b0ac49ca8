// Package timefmt converts between seconds and the [[hh:]mm:]ss[.frac]
// notation used by ffmpeg and by this tool's CLI flags.
package timefmt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Parse converts a timestamp of the form [[hh:]mm:]ss[.frac] to seconds.
// A plain number is accepted as seconds.
func Parse(ts string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	var secs float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
		secs = secs*60 + v
	}
	return secs, nil
}

// Format renders seconds as hh:mm:ss.fff (hours omitted when zero unless
// zeroHours is set, fraction omitted unless frac is set).
func Format(secs float64, frac, zeroHours bool) string {
	if secs < 0 {
		secs = 0
	}
	ms := int64(math.Round(secs * 1000))
	whole := ms / 1000
	ms %= 1000
	h := whole / 3600
	m := whole % 3600 / 60
	s := whole % 60

	var b strings.Builder
	if h > 0 || zeroHours {
		fmt.Fprintf(&b, "%02d:", h)
	}
	fmt.Fprintf(&b, "%02d:%02d", m, s)
	if frac {
		fmt.Fprintf(&b, ".%03d", ms)
	}
	return b.String()
}
