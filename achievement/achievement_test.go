package achievement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pare/streak"
)

func module(t *testing.T, days int) *streak.Module {
	t.Helper()
	m, err := streak.New("mod", 1, streak.Alcohol, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	m.DayCount = days
	m.LongestStreak = days
	return m
}

func TestNewCatalogSortsByRequirement(t *testing.T) {
	c, err := NewCatalog([]Definition{
		{ID: "b", Title: "B", Requirement: 10, Type: TypeDayCount},
		{ID: "a", Title: "A", Requirement: 1, Type: TypeDayCount},
		{ID: "c", Title: "C", Requirement: 10, Type: TypeStreak},
	})
	require.NoError(t, err)

	var ids []string
	for _, d := range c.Definitions() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	d, ok := c.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, "trophy", d.Icon)
	assert.Equal(t, 3, c.Len())
}

func TestNewCatalogRejectsMalformedEntries(t *testing.T) {
	cases := map[string]struct {
		def  Definition
		want error
	}{
		"unknown type":    {Definition{ID: "x", Title: "X", Type: "weekly"}, ErrInvalidType},
		"negative":        {Definition{ID: "x", Title: "X", Type: TypeDayCount, Requirement: -1}, ErrNegativeRequirement},
		"negative points": {Definition{ID: "x", Title: "X", Type: TypeDayCount, Points: -5}, ErrNegativePoints},
		"missing id":      {Definition{Title: "X", Type: TypeDayCount}, ErrMissingID},
		"missing title":   {Definition{ID: "x", Type: TypeDayCount}, ErrMissingTitle},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewCatalog([]Definition{tc.def})
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := NewCatalog([]Definition{
		{ID: "x", Title: "X", Type: TypeDayCount},
		{ID: "x", Title: "Y", Type: TypeStreak},
	})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestCatalogIsImmutable(t *testing.T) {
	input := []Definition{{ID: "a", Title: "A", Requirement: 1, Type: TypeDayCount}}
	c, err := NewCatalog(input)
	require.NoError(t, err)

	input[0].Requirement = 99
	defs := c.Definitions()
	defs[0].Requirement = 42

	d, _ := c.Lookup("a")
	assert.Equal(t, 1, d.Requirement)
}

func TestDefaultsAreValid(t *testing.T) {
	c, err := NewCatalog(Defaults())
	require.NoError(t, err)
	assert.Equal(t, 8, c.Len())
}

func TestEvaluateWeekWarrior(t *testing.T) {
	c, err := NewCatalog([]Definition{
		{ID: "week_warrior", Title: "Week Warrior", Type: TypeDayCount, Requirement: 7},
	})
	require.NoError(t, err)
	m := module(t, 7)

	first := Evaluate(m, c, nil)
	assert.Equal(t, []string{"week_warrior"}, first)

	second := Evaluate(m, c, UnlockedSet(first))
	assert.Empty(t, second)
}

func TestEvaluateOrderAndThresholds(t *testing.T) {
	c, err := NewCatalog(Defaults())
	require.NoError(t, err)

	got := Evaluate(module(t, 14), c, UnlockedSet([]string{"first_day"}))
	assert.Equal(t, []string{"week_warrior", "streak_10", "two_weeks"}, got)

	assert.Empty(t, Evaluate(module(t, 0), c, nil))
}

func TestEvaluateStreakUsesCurrentStreak(t *testing.T) {
	c, err := NewCatalog([]Definition{
		{ID: "streak_10", Title: "Golden", Type: TypeStreak, Requirement: 10},
	})
	require.NoError(t, err)

	m := module(t, 20)
	m.RecordRelapse(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "")
	assert.Empty(t, Evaluate(m, c, nil))
	assert.Equal(t, 20, m.LongestStreak)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	c, err := NewCatalog(Defaults())
	require.NoError(t, err)
	m := module(t, 100)

	unlocked := map[string]bool{}
	for _, id := range Evaluate(m, c, unlocked) {
		unlocked[id] = true
	}
	assert.Len(t, unlocked, 6)
	assert.Empty(t, Evaluate(m, c, unlocked))
}

func TestProgressFor(t *testing.T) {
	d := Definition{ID: "w", Title: "W", Type: TypeDayCount, Requirement: 7}

	assert.Equal(t, Progress{Current: 3, Required: 7, Percentage: 43}, ProgressFor(d, module(t, 3)))
	assert.Equal(t, Progress{Current: 30, Required: 7, Percentage: 100}, ProgressFor(d, module(t, 30)))

	zero := Definition{ID: "z", Title: "Z", Type: TypeDayCount}
	assert.Equal(t, 100, ProgressFor(zero, module(t, 0)).Percentage)
}
