package streak

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func newModule(t *testing.T, now time.Time) *Module {
	t.Helper()
	m, err := New("mod-1", 7, Smoking, now)
	require.NoError(t, err)
	return m
}

func TestNewValidates(t *testing.T) {
	_, err := New("", 1, Smoking, time.Now())
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = New("id", 0, Smoking, time.Now())
	assert.ErrorIs(t, err, ErrMissingOwner)

	_, err = New("id", 1, HabitKind("gambling"), time.Now())
	assert.ErrorIs(t, err, ErrInvalidKind)

	m, err := New("id", 1, Alcohol, day(2024, 1, 1, 9))
	require.NoError(t, err)
	assert.True(t, m.Active)
	assert.Equal(t, 1, m.Level())
	assert.Equal(t, m.StartDate, m.LastCheckIn)
}

func TestParseHabitKind(t *testing.T) {
	k, err := ParseHabitKind(" social_media ")
	require.NoError(t, err)
	assert.Equal(t, SocialMedia, k)

	_, err = ParseHabitKind("SOCIAL_MEDIA")
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestRecordProgressThreeDayGap(t *testing.T) {
	m := newModule(t, day(2024, 1, 1, 8))
	m.DayCount = 5
	m.LongestStreak = 5
	m.Points = 50

	credited := m.RecordProgress(day(2024, 1, 4, 8))

	assert.Equal(t, 3, credited)
	assert.Equal(t, 8, m.DayCount)
	assert.Equal(t, 8, m.CurrentStreak())
	assert.Equal(t, 80, m.Points)
	assert.Equal(t, 1, m.Level())
	assert.Equal(t, 8, m.LongestStreak)
	assert.Equal(t, day(2024, 1, 4, 8), m.LastCheckIn)
}

func TestRecordProgressSameDayIsIdempotent(t *testing.T) {
	m := newModule(t, day(2024, 3, 10, 1))
	m.RecordProgress(day(2024, 3, 12, 9))
	before := m.Clone()

	assert.Zero(t, m.RecordProgress(day(2024, 3, 12, 13)))
	assert.Zero(t, m.RecordProgress(day(2024, 3, 12, 23)))
	assert.Equal(t, before, m)
}

func TestRecordProgressCountsCalendarDays(t *testing.T) {
	m := newModule(t, time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC))

	// Two minutes later but a new calendar date.
	credited := m.RecordProgress(time.Date(2024, 5, 2, 0, 1, 0, 0, time.UTC))
	assert.Equal(t, 1, credited)
	assert.Equal(t, 1, m.DayCount)
}

func TestRecordProgressUsesCallerLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	// 02:00 UTC on the 2nd is still the 1st in BRT.
	m := newModule(t, time.Date(2024, 5, 2, 2, 0, 0, 0, time.UTC))

	assert.Zero(t, m.RecordProgress(time.Date(2024, 5, 1, 23, 30, 0, 0, loc)))
	assert.Equal(t, 1, m.RecordProgress(time.Date(2024, 5, 2, 8, 0, 0, 0, loc)))
}

func TestRecordProgressIgnoresBackwardsClock(t *testing.T) {
	m := newModule(t, day(2024, 2, 10, 12))
	before := m.Clone()

	assert.Zero(t, m.RecordProgress(day(2024, 2, 1, 12)))
	assert.Equal(t, before, m)
}

func TestRecordProgressLevelTracksPoints(t *testing.T) {
	m := newModule(t, day(2024, 1, 1, 0))
	now := day(2024, 1, 1, 0)

	for i := 0; i < 40; i++ {
		now = now.Add(time.Duration(i%3) * 24 * time.Hour)
		m.RecordProgress(now)
		assert.Equal(t, m.Points/100+1, m.Level())
	}
}

func TestMonotonicAcrossRelapses(t *testing.T) {
	m := newModule(t, day(2024, 1, 1, 0))
	now := day(2024, 1, 1, 0)
	longest, points := 0, 0

	for i := 1; i <= 30; i++ {
		now = now.AddDate(0, 0, i%4)
		if i%7 == 0 {
			m.RecordRelapse(now, "")
		} else {
			prevDays := m.DayCount
			m.RecordProgress(now)
			assert.GreaterOrEqual(t, m.DayCount, prevDays)
		}
		assert.GreaterOrEqual(t, m.LongestStreak, longest)
		assert.GreaterOrEqual(t, m.Points, points)
		assert.GreaterOrEqual(t, m.LongestStreak, m.CurrentStreak())
		require.NoError(t, m.Validate())
		longest, points = m.LongestStreak, m.Points
	}
}

func TestRecordRelapseAfterStreak(t *testing.T) {
	m := newModule(t, day(2024, 1, 1, 0))
	m.RecordProgress(day(2024, 1, 15, 0))
	require.Equal(t, 14, m.CurrentStreak())
	require.Equal(t, 14, m.LongestStreak)

	when := day(2024, 1, 15, 20)
	r := m.RecordRelapse(when, "stressful day")

	assert.Equal(t, 0, m.CurrentStreak())
	assert.Equal(t, 0, m.DayCount)
	assert.Equal(t, 14, m.LongestStreak)
	assert.Equal(t, 1, m.TotalRelapses)
	assert.Equal(t, 140, m.Points)
	assert.Equal(t, when, m.LastCheckIn)
	require.Len(t, m.Relapses, 1)
	assert.Equal(t, Relapse{Date: when, DaysSinceLast: 14, Notes: "stressful day"}, r)
	assert.Equal(t, r, m.Relapses[0])
}

func TestRecordRelapseAtDayZero(t *testing.T) {
	m := newModule(t, day(2024, 1, 1, 0))

	m.RecordRelapse(day(2024, 1, 1, 5), "")
	m.RecordRelapse(day(2024, 1, 1, 6), "again")

	assert.Equal(t, 2, m.TotalRelapses)
	require.Len(t, m.Relapses, 2)
	assert.Zero(t, m.Relapses[0].DaysSinceLast)
	assert.Equal(t, "again", m.Relapses[1].Notes)
}

func TestRecordRelapseKeepsHistoryOrder(t *testing.T) {
	m := newModule(t, day(2024, 1, 1, 0))
	m.RecordProgress(day(2024, 1, 4, 0))
	m.RecordRelapse(day(2024, 1, 4, 1), "first")
	first := m.Relapses[0]

	m.RecordProgress(day(2024, 1, 9, 0))
	m.RecordRelapse(day(2024, 1, 9, 1), "second")

	require.Len(t, m.Relapses, 2)
	assert.Equal(t, first, m.Relapses[0])
	assert.Equal(t, 3, m.Relapses[0].DaysSinceLast)
	assert.Equal(t, 5, m.Relapses[1].DaysSinceLast)
}

func TestRelapseNotesAreTruncated(t *testing.T) {
	m := newModule(t, day(2024, 1, 1, 0))
	long := strings.Repeat("é", MaxNoteLength+20)

	r := m.RecordRelapse(day(2024, 1, 2, 0), long)

	assert.Equal(t, MaxNoteLength, len([]rune(r.Notes)))
}

func TestStats(t *testing.T) {
	m := newModule(t, day(2024, 1, 1, 0))
	s := m.Stats()
	assert.Equal(t, 100, s.SuccessRate)
	assert.Equal(t, 0, s.AverageDaysBetweenRelapses)

	m.DayCount = 9
	m.LongestStreak = 9
	s = m.Stats()
	assert.Equal(t, 9, s.AverageDaysBetweenRelapses)

	m.TotalRelapses = 2
	s = m.Stats()
	assert.Equal(t, 4, s.AverageDaysBetweenRelapses)
	assert.Equal(t, 82, s.SuccessRate)
}

func TestValidateRejectsBrokenInvariants(t *testing.T) {
	m := newModule(t, day(2024, 1, 1, 0))

	m.DayCount = 3
	assert.ErrorIs(t, m.Validate(), ErrInvariant)

	m.LongestStreak = 3
	assert.NoError(t, m.Validate())

	m.Relapses = []Relapse{{}}
	assert.ErrorIs(t, m.Validate(), ErrInvariant)
}

func TestCalendarDaysBetween(t *testing.T) {
	assert.Equal(t, 0, CalendarDaysBetween(day(2024, 1, 1, 1), day(2024, 1, 1, 23)))
	assert.Equal(t, 1, CalendarDaysBetween(day(2024, 1, 1, 23), day(2024, 1, 2, 0)))
	assert.Equal(t, 366, CalendarDaysBetween(day(2024, 1, 1, 0), day(2025, 1, 1, 0)))
	assert.Equal(t, -1, CalendarDaysBetween(day(2024, 1, 2, 0), day(2024, 1, 1, 0)))
}
