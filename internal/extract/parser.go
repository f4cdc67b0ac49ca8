package extract

import (
	"regexp"
	"strconv"
)

// ptsTimeRe matches the extraction-timestamp marker the showinfo filter
// prints for every selected frame, e.g.
// "[Parsed_showinfo_1 @ 0x...] n:   0 pts:  12345 pts_time:12.345 ...".
var ptsTimeRe = regexp.MustCompile(`pts_time:(\d*\.?\d*)`)

// ParseTimestamp extracts the pts_time value from one diagnostic line.
// The raw string form is preserved so the manifest keeps the exact
// decimal precision the extractor emitted.
func ParseTimestamp(line string) (string, bool) {
	m := ptsTimeRe.FindStringSubmatch(line)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// ShiftTimestamp adds a trim-start offset to a raw timestamp string so
// stored timestamps stay absolute. With no offset the original string is
// returned untouched.
func ShiftTimestamp(ts string, start float64) string {
	if start == 0 {
		return ts
	}
	v, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return ts
	}
	return strconv.FormatFloat(v+start, 'f', -1, 64)
}
