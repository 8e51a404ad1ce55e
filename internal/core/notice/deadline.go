package notice

import (
	"regexp"
	"strings"
	"time"
)

// SentinelDay is the date placed on a time-of-day that arrives without one
const SentinelDay = "0000-01-01"

var (
	reDateOnly = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(Z|[+-]\d{2}:\d{2})?$`)
	reTimeOnly = regexp.MustCompile(`^(\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?)(Z|[+-]\d{2}:\d{2})?$`)
	reZone     = regexp.MustCompile(`(Z|[+-]\d{2}:\d{2})$`)
	reDayT     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T`)
)

var instantLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// expand brings a date or time component to a full timestamp form.
// Values already carrying a "T" pass through.
func expand(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || strings.Contains(s, "T"):
		return s
	case reDateOnly.MatchString(s):
		m := reDateOnly.FindStringSubmatch(s)
		return m[1] + "T00:00:00" + m[2]
	case reTimeOnly.MatchString(s):
		m := reTimeOnly.FindStringSubmatch(s)
		return SentinelDay + "T" + m[1] + m[2]
	}
	return s
}

// zoneOf returns the trailing UTC offset of a timestamp ("" if none)
func zoneOf(ts string) string {
	i := strings.IndexByte(ts, 'T')
	if i < 0 {
		return ""
	}
	return reZone.FindString(ts[i:])
}

// CombineDeadline merges a separately reported date and time of day into
// one UTC instant. Either part may be empty and either may carry its own
// offset; the date's offset wins, then the time's, then UTC. A time with
// no date lands on SentinelDay. ok is false when nothing parseable remains.
func CombineDeadline(date, tod string) (time.Time, bool) {
	d, t := expand(date), expand(tod)

	var iso string
	switch {
	case d != "" && t != "" && reDayT.MatchString(d) && strings.HasPrefix(t, SentinelDay+"T"):
		clock := t[len(SentinelDay)+1 : len(t)-len(zoneOf(t))]
		zone := zoneOf(d)
		if zone == "" {
			zone = zoneOf(t)
		}
		if zone == "" {
			zone = "Z"
		}
		iso = d[:10] + "T" + clock + zone
	case d != "" && t != "" && reDayT.MatchString(t) && !strings.HasPrefix(t, SentinelDay+"T"):
		// time component already carries its own calendar date
		iso = t
	case d != "":
		iso = d
	case t != "":
		iso = t
	default:
		return time.Time{}, false
	}
	return ParseInstant(iso)
}

// ParseInstant parses an ISO-8601 timestamp keeping its stated offset and
// returns it in UTC. Timestamps without an offset are read as UTC.
func ParseInstant(iso string) (time.Time, bool) {
	for _, layout := range instantLayouts {
		if ts, err := time.Parse(layout, iso); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParsePublished parses a publication date. Offset-qualified bare dates
// ("2025-10-10+02:00") are read as midnight at that offset.
func ParsePublished(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "T") && !reDateOnly.MatchString(s) {
		return time.Time{}, false
	}
	return ParseInstant(expand(s))
}
