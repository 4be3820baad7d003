package streak

import (
	"time"
	"unicode/utf8"
)

// RecordProgress credits every calendar day elapsed since the last check-in
// and returns the number of days credited. Calendar dates are compared in
// now's location.
//
// Repeated calls on the same calendar day credit nothing, and a now earlier
// than LastCheckIn leaves the module untouched.
func (m *Module) RecordProgress(now time.Time) int {
	if now.Before(m.LastCheckIn) {
		return 0
	}

	days := CalendarDaysBetween(m.LastCheckIn, now)
	if days <= 0 {
		return 0
	}

	m.DayCount += days
	m.Points += days * PointsPerDay
	if m.DayCount > m.LongestStreak {
		m.LongestStreak = m.DayCount
	}
	m.LastCheckIn = now

	return days
}

// RecordRelapse appends a history entry and resets the current streak. It is
// the only operation allowed to lower DayCount. LongestStreak and Points are
// kept.
func (m *Module) RecordRelapse(now time.Time, notes string) Relapse {
	r := Relapse{
		Date:          now,
		DaysSinceLast: m.DayCount,
		Notes:         TruncateNotes(notes),
	}

	m.Relapses = append(m.Relapses, r)
	m.TotalRelapses++
	m.DayCount = 0
	m.LastCheckIn = now

	return r
}

// TruncateNotes cuts notes to MaxNoteLength runes without splitting a rune.
func TruncateNotes(notes string) string {
	if utf8.RuneCountInString(notes) <= MaxNoteLength {
		return notes
	}
	runes := []rune(notes)
	return string(runes[:MaxNoteLength])
}

// CalendarDaysBetween counts calendar date boundaries crossed between from and
// to, evaluated in to's location. 23:59 to 00:01 is one day; 00:01 to 23:59 on
// the same date is zero.
func CalendarDaysBetween(from, to time.Time) int {
	loc := to.Location()
	fy, fm, fd := from.In(loc).Date()
	ty, tm, td := to.Date()

	// Civil dates pinned to UTC midnight so DST shifts cannot skew the count.
	start := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	end := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)

	return int(end.Sub(start) / (24 * time.Hour))
}
