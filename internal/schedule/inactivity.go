package schedule

import (
	"time"
)

// InactivityThreshold returns the date of the third most recent expected
// pairing day strictly before now (the antepenultimate session date): an
// engagement with no session logged after this date has gone three scheduled
// sessions without activity. The walk starts at the most recent pairing
// weekday on or before now minus one day and moves backward through the
// calendar, wrapping around the weekday set as it goes. Returns false when
// the day set is empty or contains no known weekday.
func InactivityThreshold(days []string, now time.Time) (time.Time, bool) {
	wanted := ParseWeekdays(days)
	if len(wanted) == 0 {
		return time.Time{}, false
	}

	collected := 0
	for d := DateOf(now).AddDate(0, 0, -1); ; d = d.AddDate(0, 0, -1) {
		if wanted[d.Weekday()] {
			collected++
			if collected == 3 {
				return d, true
			}
		}
	}
}
