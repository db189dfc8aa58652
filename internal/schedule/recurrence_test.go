package schedule

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSessionDates(t *testing.T) {
	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		days  []string
		want  []time.Time
	}{
		{
			name:  "mondays_across_january",
			start: date(2021, time.January, 4),
			end:   date(2021, time.February, 1),
			days:  []string{"monday"},
			want: []time.Time{
				date(2021, time.January, 4),
				date(2021, time.January, 11),
				date(2021, time.January, 18),
				date(2021, time.January, 25),
			},
		},
		{
			name:  "two_days_per_week",
			start: date(2021, time.January, 4),
			end:   date(2021, time.January, 15),
			days:  []string{"monday", "thursday"},
			want: []time.Time{
				date(2021, time.January, 4),
				date(2021, time.January, 7),
				date(2021, time.January, 11),
				date(2021, time.January, 14),
			},
		},
		{
			name:  "end_date_excluded",
			start: date(2021, time.January, 4),
			end:   date(2021, time.January, 11),
			days:  []string{"monday"},
			want:  []time.Time{date(2021, time.January, 4)},
		},
		{
			name:  "start_equals_end",
			start: date(2021, time.January, 4),
			end:   date(2021, time.January, 4),
			days:  []string{"monday"},
			want:  []time.Time{},
		},
		{
			name:  "start_after_end",
			start: date(2021, time.February, 1),
			end:   date(2021, time.January, 4),
			days:  []string{"monday"},
			want:  []time.Time{},
		},
		{
			name:  "empty_days",
			start: date(2021, time.January, 4),
			end:   date(2021, time.February, 1),
			days:  nil,
			want:  []time.Time{},
		},
		{
			name:  "unknown_day_names_skipped",
			start: date(2021, time.January, 4),
			end:   date(2021, time.January, 11),
			days:  []string{"funday", "Monday"},
			want:  []time.Time{date(2021, time.January, 4)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SessionDates(tc.start, tc.end, tc.days)
			if len(got) != len(tc.want) {
				t.Fatalf("SessionDates returned %d dates, want %d: %v", len(got), len(tc.want), got)
			}
			for i := range got {
				if !got[i].Equal(tc.want[i]) {
					t.Fatalf("date[%d] = %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestSessionDatesProperties(t *testing.T) {
	start := date(2020, time.March, 1)
	end := date(2020, time.June, 1)
	days := []string{"tuesday", "friday", "sunday"}
	wanted := ParseWeekdays(days)

	first := SessionDates(start, end, days)
	second := SessionDates(start, end, days)

	if len(first) != len(second) {
		t.Fatalf("repeated call changed result length: %d vs %d", len(first), len(second))
	}
	for i, d := range first {
		if !wanted[d.Weekday()] {
			t.Fatalf("date %v has weekday %v outside the requested set", d, d.Weekday())
		}
		if d.Before(start) || !d.Before(end) {
			t.Fatalf("date %v outside [start, end)", d)
		}
		if i > 0 && !first[i-1].Before(d) {
			t.Fatalf("dates not strictly ascending at index %d: %v, %v", i, first[i-1], d)
		}
		if !d.Equal(second[i]) {
			t.Fatalf("repeated call diverged at index %d", i)
		}
	}
}
