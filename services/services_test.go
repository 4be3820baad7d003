package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pare/achievement"
	"pare/database"
	"pare/database/dbtest"
	"pare/models"
	"pare/streak"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	db      *gorm.DB
	clock   *fakeClock
	events  *Events
	catalog *CatalogService
	modules *ModuleService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}

	catalog := NewCatalogService(database.NewAchievementStore(db))
	require.NoError(t, catalog.EnsureSeeded(context.Background()))

	events := NewEvents(16)
	return &fixture{
		db:      db,
		clock:   clock,
		events:  events,
		catalog: catalog,
		modules: NewModuleService(db, catalog, events, time.UTC).WithClock(clock.Now),
	}
}

const day = 24 * time.Hour

func TestCreateEnforcesPlanLimits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := dbtest.User(t, f.db, "free@example.com", models.PlanFree)

	_, err := f.modules.Create(ctx, u.ID, "smoking")
	require.NoError(t, err)

	_, err = f.modules.Create(ctx, u.ID, "alcohol")
	assert.ErrorIs(t, err, ErrModuleLimit)

	_, err = f.modules.Create(ctx, u.ID, "gambling")
	assert.ErrorIs(t, err, streak.ErrInvalidKind)

	premium := dbtest.User(t, f.db, "premium@example.com", models.PlanPremium)
	for _, kind := range []string{"smoking", "alcohol", "shopping"} {
		_, err := f.modules.Create(ctx, premium.ID, kind)
		require.NoError(t, err, kind)
	}
	_, err = f.modules.Create(ctx, premium.ID, "social_media")
	assert.ErrorIs(t, err, ErrModuleLimit)
	_, err = f.modules.Create(ctx, premium.ID, "smoking")
	assert.ErrorIs(t, err, ErrModuleExists)
}

func TestExpiredPlanCountsAsFree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := dbtest.User(t, f.db, "lapsed@example.com", models.PlanElite)
	expired := f.clock.Now().Add(-time.Hour)
	require.NoError(t, f.db.Model(u).Update("plan_expires_at", expired).Error)

	_, err := f.modules.Create(ctx, u.ID, "smoking")
	require.NoError(t, err)
	_, err = f.modules.Create(ctx, u.ID, "alcohol")
	assert.ErrorIs(t, err, ErrModuleLimit)
}

func TestCheckInCreditsDaysAndUnlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := dbtest.User(t, f.db, "a@example.com", models.PlanFree)
	m, err := f.modules.Create(ctx, u.ID, "smoking")
	require.NoError(t, err)

	sub := f.events.Subscribe(u.ID)
	defer sub.Close()

	f.clock.Advance(7 * day)
	res, err := f.modules.CheckIn(ctx, m.ID, u.ID)
	require.NoError(t, err)

	assert.Equal(t, 7, res.DaysCredited)
	assert.Equal(t, 7, res.Module.DayCount)
	assert.Equal(t, 7, res.Module.CurrentStreak)
	assert.Equal(t, 70, res.Module.Points)
	require.Len(t, res.NewAchievements, 2)
	assert.Equal(t, "first_day", res.NewAchievements[0].ID)
	assert.Equal(t, "week_warrior", res.NewAchievements[1].ID)

	// Same day again: nothing new.
	f.clock.Advance(time.Hour)
	res, err = f.modules.CheckIn(ctx, m.ID, u.ID)
	require.NoError(t, err)
	assert.Zero(t, res.DaysCredited)
	assert.Empty(t, res.NewAchievements)
	assert.Equal(t, 7, res.Module.DayCount)

	var types []EventType
	for len(sub.C) > 0 {
		types = append(types, (<-sub.C).Type)
	}
	assert.Equal(t, []EventType{EventAchievementUnlocked, EventAchievementUnlocked, EventCheckIn}, types)
}

func TestConcurrentCheckInsUnlockOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := dbtest.User(t, f.db, "b@example.com", models.PlanFree)
	m, err := f.modules.Create(ctx, u.ID, "alcohol")
	require.NoError(t, err)
	f.clock.Advance(10 * day)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		credited int
		unlocked []string
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.modules.CheckIn(ctx, m.ID, u.ID)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			credited += res.DaysCredited
			for _, d := range res.NewAchievements {
				unlocked = append(unlocked, d.ID)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, credited)
	assert.ElementsMatch(t, []string{"first_day", "week_warrior", "streak_10"}, unlocked)

	got, err := f.modules.Get(ctx, m.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.DayCount)
	assert.Equal(t, 100, got.Points)
	assert.Equal(t, 2, got.Level)
}

func TestReportRelapse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := dbtest.User(t, f.db, "c@example.com", models.PlanFree)
	m, err := f.modules.Create(ctx, u.ID, "shopping")
	require.NoError(t, err)

	f.clock.Advance(14 * day)
	_, err = f.modules.CheckIn(ctx, m.ID, u.ID)
	require.NoError(t, err)

	res, err := f.modules.ReportRelapse(ctx, m.ID, u.ID, "stressful day")
	require.NoError(t, err)
	assert.Equal(t, 14, res.Relapse.DaysSinceLast)
	assert.Equal(t, "stressful day", res.Relapse.Notes)
	assert.Equal(t, 0, res.Module.DayCount)
	assert.Equal(t, 14, res.Module.LongestStreak)
	assert.Equal(t, 1, res.Module.TotalRelapses)
	assert.Equal(t, 140, res.Module.Points)

	stats, err := f.modules.Stats(ctx, m.ID, u.ID)
	require.NoError(t, err)
	require.Len(t, stats.Module.RelapseHistory, 1)
	assert.Equal(t, 0, stats.Stats.SuccessRate)

	// Relapsing does not revoke earned achievements.
	status, err := f.modules.AchievementStatus(ctx, u.ID, m.ID)
	require.NoError(t, err)
	byID := map[string]AchievementStatus{}
	for _, s := range status {
		byID[s.ID] = s
	}
	assert.True(t, byID["two_weeks"].Unlocked)
	assert.False(t, byID["month_master"].Unlocked)
	require.NotNil(t, byID["week_warrior"].Progress)
	assert.Equal(t, 0, byID["week_warrior"].Progress.Current)
}

func TestModuleOwnershipAndDeactivation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner@example.com", models.PlanFree)
	other := dbtest.User(t, f.db, "other@example.com", models.PlanFree)
	m, err := f.modules.Create(ctx, owner.ID, "smoking")
	require.NoError(t, err)

	_, err = f.modules.CheckIn(ctx, m.ID, other.ID)
	assert.ErrorIs(t, err, ErrModuleNotFound)
	_, err = f.modules.ReportRelapse(ctx, m.ID, other.ID, "")
	assert.ErrorIs(t, err, ErrModuleNotFound)

	require.NoError(t, f.modules.Deactivate(ctx, m.ID, owner.ID))
	_, err = f.modules.CheckIn(ctx, m.ID, owner.ID)
	assert.ErrorIs(t, err, ErrModuleNotFound)
	_, err = f.modules.CheckAchievements(ctx, owner.ID, m.ID)
	assert.ErrorIs(t, err, ErrModuleNotFound)

	list, err := f.modules.List(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	// A free plan slot is available again.
	_, err = f.modules.Create(ctx, owner.ID, "alcohol")
	assert.NoError(t, err)
}

func TestCheckAchievementsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := dbtest.User(t, f.db, "d@example.com", models.PlanFree)
	m, err := f.modules.Create(ctx, u.ID, "pornography")
	require.NoError(t, err)

	// Progress recorded directly, as if a check-in crashed before evaluating.
	require.NoError(t, f.db.Model(&models.Module{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
		"day_count":      30,
		"longest_streak": 30,
	}).Error)

	first, err := f.modules.CheckAchievements(ctx, u.ID, m.ID)
	require.NoError(t, err)
	assert.Len(t, first, 5)

	second, err := f.modules.CheckAchievements(ctx, u.ID, m.ID)
	require.NoError(t, err)
	assert.Empty(t, second)

	mine, err := f.modules.UserAchievements(ctx, u.ID, "")
	require.NoError(t, err)
	assert.Len(t, mine, 5)
}

func TestAchievementStatusWithoutModule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := dbtest.User(t, f.db, "e@example.com", models.PlanFree)
	m, err := f.modules.Create(ctx, u.ID, "smoking")
	require.NoError(t, err)
	f.clock.Advance(day)
	_, err = f.modules.CheckIn(ctx, m.ID, u.ID)
	require.NoError(t, err)

	status, err := f.modules.AchievementStatus(ctx, u.ID, "")
	require.NoError(t, err)
	require.Len(t, status, len(achievement.Defaults()))
	assert.Equal(t, "first_day", status[0].ID)
	assert.True(t, status[0].Unlocked)
	assert.NotNil(t, status[0].UnlockedAt)
	assert.Nil(t, status[0].Progress)
	assert.False(t, status[1].Unlocked)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := dbtest.User(t, f.db, "f@example.com", models.PlanElite)

	a, err := f.modules.Create(ctx, u.ID, "smoking")
	require.NoError(t, err)
	f.clock.Advance(3 * day)
	_, err = f.modules.CheckIn(ctx, a.ID, u.ID)
	require.NoError(t, err)

	b, err := f.modules.Create(ctx, u.ID, "alcohol")
	require.NoError(t, err)
	f.clock.Advance(5 * day)
	_, err = f.modules.CheckIn(ctx, b.ID, u.ID)
	require.NoError(t, err)
	_, err = f.modules.CheckIn(ctx, a.ID, u.ID)
	require.NoError(t, err)
	_, err = f.modules.ReportRelapse(ctx, b.ID, u.ID, "")
	require.NoError(t, err)

	d, err := f.modules.Dashboard(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, d.Modules, 2)
	assert.Equal(t, a.ID, d.Modules[0].ID)
	assert.Equal(t, DashboardTotals{
		ActiveModules: 2,
		TotalDays:     8,
		TotalPoints:   130,
		LongestStreak: 8,
		TotalRelapses: 1,
	}, d.Totals)
	// first_day and week_warrior on a, first_day on b.
	assert.EqualValues(t, 3, d.UnlockedAchievements)
}

func TestCatalogReseedKeepsUnlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := dbtest.User(t, f.db, "g@example.com", models.PlanFree)
	m, err := f.modules.Create(ctx, u.ID, "smoking")
	require.NoError(t, err)
	f.clock.Advance(2 * day)
	_, err = f.modules.CheckIn(ctx, m.ID, u.ID)
	require.NoError(t, err)

	_, err = f.catalog.Reseed(ctx, []achievement.Definition{
		{ID: "first_day", Title: "First Step", Requirement: 1, Points: 10, Type: achievement.TypeDayCount},
		{ID: "two_days", Title: "Two Days", Requirement: 2, Points: 20, Type: achievement.TypeStreak},
	})
	require.NoError(t, err)

	got, err := f.modules.CheckAchievements(ctx, u.ID, m.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "two_days", got[0].ID)

	_, err = f.catalog.Reseed(ctx, []achievement.Definition{{ID: "bad", Title: "Bad", Type: "weekly"}})
	assert.ErrorIs(t, err, achievement.ErrInvalidType)
	assert.Equal(t, 2, f.catalog.Snapshot().Len())
}

func TestSweepChecksInEveryActiveModule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for _, email := range []string{"s1@example.com", "s2@example.com", "s3@example.com"} {
		u := dbtest.User(t, f.db, email, models.PlanFree)
		m, err := f.modules.Create(ctx, u.ID, "smoking")
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	sweep := NewCheckInSweep(f.modules, "03:00")
	f.clock.Advance(day)

	report, err := sweep.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Modules: 3, Credited: 3, Achievements: 3}, report)

	report, err = sweep.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Modules: 3}, report)
}

func TestEventsDropWhenSubscriberIsSlow(t *testing.T) {
	h := NewEvents(2)
	sub := h.Subscribe(7)
	other := h.Subscribe(8)
	defer other.Close()

	for i := 0; i < 5; i++ {
		h.Publish(7, Event{Type: EventCheckIn})
	}
	assert.Len(t, sub.C, 2)
	assert.Len(t, other.C, 0)
	assert.Equal(t, 1, h.Subscribers(7))

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, h.Subscribers(7))
	h.Publish(7, Event{Type: EventRelapse})

	n := 0
	for range sub.C {
		n++
	}
	assert.Equal(t, 2, n)
}
