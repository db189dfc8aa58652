package schedule

import (
	"strings"
	"time"
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekdays maps lower-case weekday names onto a set of time.Weekday.
// Unknown names are skipped so a malformed pairing degrades to fewer days
// rather than an error.
func ParseWeekdays(days []string) map[time.Weekday]bool {
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		if wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(d))]; ok {
			set[wd] = true
		}
	}
	return set
}

// DateOf truncates a timestamp to midnight in its own location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SessionDates returns every date d with start <= d < end whose weekday is in
// days, in ascending order. An empty day set or start >= end yields an empty
// result. Pure: no clock access, safe to call repeatedly.
func SessionDates(start, end time.Time, days []string) []time.Time {
	out := []time.Time{}
	wanted := ParseWeekdays(days)
	if len(wanted) == 0 {
		return out
	}
	for d := DateOf(start); d.Before(end); d = d.AddDate(0, 0, 1) {
		if wanted[d.Weekday()] {
			out = append(out, d)
		}
	}
	return out
}
