package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pare/achievement"
	"pare/database"
	"pare/logger"
	"pare/models"
	"pare/streak"
)

var (
	ErrModuleNotFound = errors.New("module not found")
	ErrModuleExists   = errors.New("an active module for this habit already exists")
	ErrModuleLimit    = errors.New("active module limit reached for your plan")
)

// ModuleView is the client representation of a module.
type ModuleView struct {
	ID             string           `json:"id"`
	HabitKind      streak.HabitKind `json:"habit_kind"`
	StartDate      time.Time        `json:"start_date"`
	DayCount       int              `json:"day_count"`
	CurrentStreak  int              `json:"current_streak"`
	LongestStreak  int              `json:"longest_streak"`
	Points         int              `json:"points"`
	Level          int              `json:"level"`
	TotalRelapses  int              `json:"total_relapses"`
	LastCheckIn    time.Time        `json:"last_check_in"`
	IsActive       bool             `json:"is_active"`
	RelapseHistory []streak.Relapse `json:"relapse_history"`
}

func NewModuleView(m *streak.Module) ModuleView {
	history := m.Relapses
	if history == nil {
		history = []streak.Relapse{}
	}
	return ModuleView{
		ID:             m.ID,
		HabitKind:      m.Kind,
		StartDate:      m.StartDate,
		DayCount:       m.DayCount,
		CurrentStreak:  m.CurrentStreak(),
		LongestStreak:  m.LongestStreak,
		Points:         m.Points,
		Level:          m.Level(),
		TotalRelapses:  m.TotalRelapses,
		LastCheckIn:    m.LastCheckIn,
		IsActive:       m.Active,
		RelapseHistory: history,
	}
}

// CheckInResult is the outcome of a check-in.
type CheckInResult struct {
	Module          ModuleView               `json:"module"`
	DaysCredited    int                      `json:"days_credited"`
	NewAchievements []achievement.Definition `json:"new_achievements"`
}

type RelapseResult struct {
	Module  ModuleView     `json:"module"`
	Relapse streak.Relapse `json:"relapse"`
}

type ModuleStats struct {
	Module ModuleView   `json:"module"`
	Stats  streak.Stats `json:"stats"`
}

// AchievementStatus is one catalog entry seen from a user's perspective.
// Progress is only set when the status is computed for a module.
type AchievementStatus struct {
	achievement.Definition
	Unlocked   bool                  `json:"unlocked"`
	UnlockedAt *time.Time            `json:"unlocked_at,omitempty"`
	Progress   *achievement.Progress `json:"progress,omitempty"`
}

type UnlockedAchievement struct {
	Achievement achievement.Definition `json:"achievement"`
	ModuleID    string                 `json:"module_id"`
	UnlockedAt  time.Time              `json:"unlocked_at"`
}

type DashboardTotals struct {
	ActiveModules int `json:"active_modules"`
	TotalDays     int `json:"total_days"`
	TotalPoints   int `json:"total_points"`
	LongestStreak int `json:"longest_streak"`
	TotalRelapses int `json:"total_relapses"`
}

type Dashboard struct {
	Modules              []ModuleView    `json:"modules"`
	UnlockedAchievements int64           `json:"unlocked_achievements"`
	Totals               DashboardTotals `json:"totals"`
}

// ModuleService runs module lifecycle operations: it loads state from the
// stores, applies the streak engine, evaluates achievements against the
// current catalog snapshot and publishes events.
type ModuleService struct {
	modules      *database.ModuleStore
	achievements *database.AchievementStore
	users        *database.UserStore
	catalog      *CatalogService
	events       *Events

	loc *time.Location
	now func() time.Time
}

func NewModuleService(db *gorm.DB, catalog *CatalogService, events *Events, loc *time.Location) *ModuleService {
	if loc == nil {
		loc = time.UTC
	}
	return &ModuleService{
		modules:      database.NewModuleStore(db),
		achievements: database.NewAchievementStore(db),
		users:        database.NewUserStore(db),
		catalog:      catalog,
		events:       events,
		loc:          loc,
		now:          time.Now,
	}
}

// WithClock replaces the time source.
func (s *ModuleService) WithClock(now func() time.Time) *ModuleService {
	s.now = now
	return s
}

// clock returns the current time in the zone calendar days are counted in.
func (s *ModuleService) clock() time.Time {
	return s.now().In(s.loc)
}

func moduleErr(err error) error {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return ErrModuleNotFound
	case errors.Is(err, database.ErrLimit):
		return fmt.Errorf("%w: %v", ErrModuleLimit, err)
	case errors.Is(err, database.ErrDuplicate):
		return ErrModuleExists
	}
	return err
}

// Create starts tracking a habit for userID, within the user's plan limit.
func (s *ModuleService) Create(ctx context.Context, userID uint, kind string) (ModuleView, error) {
	k, err := streak.ParseHabitKind(kind)
	if err != nil {
		return ModuleView{}, err
	}

	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return ModuleView{}, err
	}

	now := s.clock()
	m, err := streak.New(uuid.NewString(), userID, k, now)
	if err != nil {
		return ModuleView{}, err
	}

	limit := user.EffectivePlan(now).ModuleLimit()
	if err := s.modules.CreateWithinLimit(ctx, m, limit); err != nil {
		return ModuleView{}, moduleErr(err)
	}

	logger.Info("module created", "user", userID, "module", m.ID, "kind", k)
	view := NewModuleView(m)
	s.events.Publish(userID, Event{Type: EventModuleCreated, ModuleID: m.ID, Payload: view, At: now})
	return view, nil
}

// List returns the user's active modules, newest first.
func (s *ModuleService) List(ctx context.Context, userID uint) ([]ModuleView, error) {
	rows, err := s.modules.ListActive(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	return views(rows), nil
}

func views(rows []models.Module) []ModuleView {
	out := make([]ModuleView, 0, len(rows))
	for i := range rows {
		out = append(out, NewModuleView(rows[i].Domain()))
	}
	return out
}

func (s *ModuleService) Get(ctx context.Context, id string, userID uint) (ModuleView, error) {
	row, err := s.modules.Get(ctx, id, userID)
	if err != nil {
		return ModuleView{}, moduleErr(err)
	}
	return NewModuleView(row.Domain()), nil
}

// CheckIn credits the calendar days elapsed since the last check-in and
// unlocks any achievement the module now qualifies for.
func (s *ModuleService) CheckIn(ctx context.Context, id string, userID uint) (*CheckInResult, error) {
	now := s.clock()

	var credited int
	m, err := s.modules.Update(ctx, id, userID, func(m *streak.Module) bool {
		credited = m.RecordProgress(now)
		return credited > 0
	})
	if err != nil {
		return nil, moduleErr(err)
	}

	unlocked, err := s.unlock(ctx, m, now)
	if err != nil {
		return nil, err
	}

	view := NewModuleView(m)
	if credited > 0 {
		logger.Debug("check-in credited", "module", id, "days", credited, "day_count", m.DayCount)
		s.events.Publish(userID, Event{Type: EventCheckIn, ModuleID: id, Payload: view, At: now})
	}

	return &CheckInResult{Module: view, DaysCredited: credited, NewAchievements: unlocked}, nil
}

// ReportRelapse resets the module's streak and appends a history entry.
func (s *ModuleService) ReportRelapse(ctx context.Context, id string, userID uint, notes string) (*RelapseResult, error) {
	now := s.clock()

	var relapse streak.Relapse
	m, err := s.modules.Update(ctx, id, userID, func(m *streak.Module) bool {
		relapse = m.RecordRelapse(now, notes)
		return true
	})
	if err != nil {
		return nil, moduleErr(err)
	}

	logger.Info("relapse recorded", "user", userID, "module", id, "days_since_last", relapse.DaysSinceLast)
	view := NewModuleView(m)
	s.events.Publish(userID, Event{Type: EventRelapse, ModuleID: id, Payload: view, At: now})
	return &RelapseResult{Module: view, Relapse: relapse}, nil
}

// Deactivate soft deletes a module. Its unlocks and history are kept.
func (s *ModuleService) Deactivate(ctx context.Context, id string, userID uint) error {
	if err := s.modules.Deactivate(ctx, id, userID); err != nil {
		return moduleErr(err)
	}
	logger.Info("module deactivated", "user", userID, "module", id)
	return nil
}

func (s *ModuleService) Stats(ctx context.Context, id string, userID uint) (*ModuleStats, error) {
	row, err := s.modules.Get(ctx, id, userID)
	if err != nil {
		return nil, moduleErr(err)
	}
	m := row.Domain()
	return &ModuleStats{Module: NewModuleView(m), Stats: m.Stats()}, nil
}

// CheckAchievements evaluates an active module against the catalog and
// returns the achievements unlocked by this call.
func (s *ModuleService) CheckAchievements(ctx context.Context, userID uint, moduleID string) ([]achievement.Definition, error) {
	row, err := s.modules.Get(ctx, moduleID, userID)
	if err != nil {
		return nil, moduleErr(err)
	}
	if !row.IsActive {
		return nil, ErrModuleNotFound
	}
	return s.unlock(ctx, row.Domain(), s.clock())
}

// unlock records every achievement m newly qualifies for. Achievements a
// concurrent caller recorded first are not reported again.
func (s *ModuleService) unlock(ctx context.Context, m *streak.Module, now time.Time) ([]achievement.Definition, error) {
	catalog := s.catalog.Snapshot()

	codes, err := s.achievements.UnlockedCodes(ctx, m.OwnerID, m.ID)
	if err != nil {
		return nil, err
	}

	unlocked := []achievement.Definition{}
	for _, code := range achievement.Evaluate(m, catalog, achievement.UnlockedSet(codes)) {
		inserted, err := s.achievements.UnlockIfAbsent(ctx, m.OwnerID, m.ID, code, now)
		if err != nil {
			return nil, fmt.Errorf("unlock %s: %w", code, err)
		}
		if !inserted {
			continue
		}

		def, _ := catalog.Lookup(code)
		unlocked = append(unlocked, def)
		logger.Info("achievement unlocked", "user", m.OwnerID, "module", m.ID, "achievement", code)
		s.events.Publish(m.OwnerID, Event{Type: EventAchievementUnlocked, ModuleID: m.ID, Payload: def, At: now})
	}
	return unlocked, nil
}

// AchievementStatus lists the whole catalog with the user's unlock state.
// With a moduleID the unlocks and progress are scoped to that module;
// without one an achievement counts as unlocked if any module earned it.
func (s *ModuleService) AchievementStatus(ctx context.Context, userID uint, moduleID string) ([]AchievementStatus, error) {
	var m *streak.Module
	if moduleID != "" {
		row, err := s.modules.Get(ctx, moduleID, userID)
		if err != nil {
			return nil, moduleErr(err)
		}
		m = row.Domain()
	}

	unlocks, err := s.achievements.Unlocks(ctx, userID, moduleID)
	if err != nil {
		return nil, err
	}
	earliest := make(map[string]time.Time, len(unlocks))
	for _, u := range unlocks {
		if at, ok := earliest[u.AchievementCode]; !ok || u.UnlockedAt.Before(at) {
			earliest[u.AchievementCode] = u.UnlockedAt
		}
	}

	defs := s.catalog.Snapshot().Definitions()
	out := make([]AchievementStatus, 0, len(defs))
	for _, d := range defs {
		st := AchievementStatus{Definition: d}
		if at, ok := earliest[d.ID]; ok {
			at := at
			st.Unlocked = true
			st.UnlockedAt = &at
		}
		if m != nil {
			p := achievement.ProgressFor(d, m)
			st.Progress = &p
		}
		out = append(out, st)
	}
	return out, nil
}

// UserAchievements lists the user's unlocks, newest first. Unlocks whose
// achievement has since left the catalog are skipped.
func (s *ModuleService) UserAchievements(ctx context.Context, userID uint, moduleID string) ([]UnlockedAchievement, error) {
	unlocks, err := s.achievements.Unlocks(ctx, userID, moduleID)
	if err != nil {
		return nil, err
	}

	catalog := s.catalog.Snapshot()
	out := make([]UnlockedAchievement, 0, len(unlocks))
	for _, u := range unlocks {
		def, ok := catalog.Lookup(u.AchievementCode)
		if !ok {
			continue
		}
		out = append(out, UnlockedAchievement{Achievement: def, ModuleID: u.ModuleID, UnlockedAt: u.UnlockedAt})
	}
	return out, nil
}

// Dashboard summarises every active module of a user.
func (s *ModuleService) Dashboard(ctx context.Context, userID uint) (*Dashboard, error) {
	rows, err := s.modules.ListActive(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	unlocked, err := s.achievements.CountUnlocks(ctx, userID)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{Modules: views(rows), UnlockedAchievements: unlocked}
	for _, m := range d.Modules {
		d.Totals.ActiveModules++
		d.Totals.TotalDays += m.DayCount
		d.Totals.TotalPoints += m.Points
		d.Totals.TotalRelapses += m.TotalRelapses
		if m.LongestStreak > d.Totals.LongestStreak {
			d.Totals.LongestStreak = m.LongestStreak
		}
	}
	return d, nil
}
