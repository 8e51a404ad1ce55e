package notice

import (
	"testing"
	"time"
)

func TestCombineDeadline(t *testing.T) {
	utc := func(y int, m time.Month, d, hh, mm, ss int) time.Time {
		return time.Date(y, m, d, hh, mm, ss, 0, time.UTC)
	}
	cases := []struct {
		name string
		date string
		tod  string
		want time.Time
		ok   bool
	}{
		{"date only with offset", "2025-10-10+02:00", "", utc(2025, 10, 9, 22, 0, 0), true},
		{"time only on sentinel", "", "14:30:00+02:00", utc(0, 1, 1, 12, 30, 0), true},
		{"nothing", "", "", time.Time{}, false},
		{"both spliced with date offset", "2025-11-12+01:00", "10:00:00+01:00", utc(2025, 11, 12, 9, 0, 0), true},
		{"date offset wins", "2025-11-12+01:00", "10:00:00+03:00", utc(2025, 11, 12, 9, 0, 0), true},
		{"time offset used when date has none", "2025-11-12", "10:00:00+03:00", utc(2025, 11, 12, 7, 0, 0), true},
		{"neither has offset", "2025-11-12", "10:00:00", utc(2025, 11, 12, 10, 0, 0), true},
		{"negative offset", "2025-11-12-05:00", "", utc(2025, 11, 12, 5, 0, 0), true},
		{"zulu date", "2025-11-12Z", "23:59:59Z", utc(2025, 11, 12, 23, 59, 59), true},
		{"date already full", "2025-11-12T08:15:00+01:00", "", utc(2025, 11, 12, 7, 15, 0), true},
		{"time carries full timestamp", "2025-11-12+01:00", "2025-11-13T12:00:00Z", utc(2025, 11, 13, 12, 0, 0), true},
		{"fractional seconds", "2025-11-12+00:00", "10:00:00.250+00:00", time.Date(2025, 11, 12, 10, 0, 0, 250e6, time.UTC), true},
		{"garbage date", "next tuesday", "", time.Time{}, false},
		{"garbage time", "", "noon", time.Time{}, false},
		{"invalid month", "2025-13-01+01:00", "", time.Time{}, false},
		{"invalid spliced", "2025-02-30+01:00", "10:00:00+01:00", time.Time{}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := CombineDeadline(c.date, c.tod)
			if ok != c.ok {
				t.Fatalf("CombineDeadline(%q, %q) ok = %v, want %v (got %v)", c.date, c.tod, ok, c.ok, got)
			}
			if ok && !got.Equal(c.want) {
				t.Fatalf("CombineDeadline(%q, %q) = %s, want %s", c.date, c.tod, got, c.want)
			}
			if ok && got.Location() != time.UTC {
				t.Fatalf("result not in UTC: %v", got.Location())
			}
		})
	}
}

func TestParsePublished(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2025-10-10+02:00", time.Date(2025, 10, 9, 22, 0, 0, 0, time.UTC), true},
		{"2025-10-10", time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC), true},
		{"2025-10-10T09:00:00+02:00", time.Date(2025, 10, 10, 7, 0, 0, 0, time.UTC), true},
		{"14:30:00+02:00", time.Time{}, false},
		{"10/10/2025", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, c := range cases {
		got, ok := ParsePublished(c.in)
		if ok != c.ok || (ok && !got.Equal(c.want)) {
			t.Fatalf("ParsePublished(%q) = (%v, %v), want (%v, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}
