// Package interval holds the time-range primitives shared by status
// resolution, conflict detection and calendar layout.
package interval

import "time"

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Ranges that merely touch (aEnd == bStart) do not overlap. A zero bound
// on either side is treated as unknown and never overlaps.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aStart.IsZero() || aEnd.IsZero() || bStart.IsZero() || bEnd.IsZero() {
		return false
	}
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Contains reports whether t lies in [start, end).
func Contains(start, end, t time.Time) bool {
	if start.IsZero() || end.IsZero() || t.IsZero() {
		return false
	}
	return !t.Before(start) && t.Before(end)
}

// StartOfDay returns local midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayWindow returns [midnight, next midnight) for t's calendar day. The end
// is computed with AddDate so 23h and 25h days are handled.
func DayWindow(t time.Time) (time.Time, time.Time) {
	start := StartOfDay(t)
	return start, start.AddDate(0, 0, 1)
}

// SameDay reports whether a and b fall on the same calendar day, comparing
// in a's location.
func SameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// AfterDate reports whether t's calendar day, in t's own location, is
// strictly after date's calendar date. date is read as a plain date: only
// its year, month and day count, in whatever zone it was parsed.
func AfterDate(t, date time.Time) bool {
	ty, tm, td := t.Date()
	dy, dm, dd := date.Date()
	return time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC).After(time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC))
}
