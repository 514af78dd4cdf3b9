// Package streak derives the consecutive-day entry streak. Nothing here is persisted.
package streak

import (
	"sort"
	"time"
)

// BreakAfter is the inactivity gap that resets the streak regardless of calendar days.
const BreakAfter = 24 * time.Hour

// Calculate returns the streak for the given entry creation times evaluated at now.
// Days are compared as calendar dates in loc.
func Calculate(createdAt []time.Time, now time.Time, loc *time.Location) int {
	if len(createdAt) == 0 {
		return 0
	}
	if loc == nil {
		loc = time.Local
	}

	sorted := append([]time.Time(nil), createdAt...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].After(sorted[j]) })

	if now.Sub(sorted[0]) > BreakAfter {
		return 0
	}

	streak := 1
	current := dayNumber(sorted[0], loc)
	for _, t := range sorted[1:] {
		diff := current - dayNumber(t, loc)
		switch {
		case diff == 0:
			continue
		case diff == 1:
			streak++
			current--
		default:
			return streak
		}
	}
	return streak
}

// dayNumber counts calendar days since the epoch for t's date in loc, ignoring DST length changes.
func dayNumber(t time.Time, loc *time.Location) int {
	y, m, d := t.In(loc).Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
