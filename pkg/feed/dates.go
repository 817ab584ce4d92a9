package feed

import (
	"strings"
	"time"
)

// DateLayout is the RFC 822 style layout used for item and channel dates.
const DateLayout = time.RFC1123Z

var parseLayouts = []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC3339}

// FormatDate formats t for the feed in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses a feed date in any of the common RSS layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// compareDates orders two feed dates chronologically, falling back to plain
// string comparison when either one cannot be parsed.
func compareDates(a, b string) int {
	ta, okA := ParseDate(a)
	tb, okB := ParseDate(b)
	if okA && okB {
		return ta.Compare(tb)
	}
	return strings.Compare(a, b)
}
