package service

import (
	"slices"

	"github.com/iliyamo/habit-tracker/internal/dates"
)

// CurrentStreak counts consecutive calendar days with any activity,
// ending at the most recent active day.  The streak is only current when
// that day is today or yesterday; otherwise it is 0.  activity may be in
// any order and contain duplicates.
func CurrentStreak(activity []string, today string) int {
	days := slices.Clone(activity)
	slices.Sort(days)
	days = slices.Compact(days)
	slices.Reverse(days)
	if len(days) == 0 {
		return 0
	}

	yesterday, err := dates.PrevDay(today)
	if err != nil {
		return 0
	}
	if days[0] != today && days[0] != yesterday {
		return 0
	}

	streak := 1
	anchor := days[0]
	for _, d := range days[1:] {
		want, err := dates.PrevDay(anchor)
		if err != nil || d != want {
			break
		}
		streak++
		anchor = d
	}
	return streak
}
