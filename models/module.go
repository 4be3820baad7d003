// models/module.go
package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pare/streak"
)

// Module is the persisted form of streak.Module. Version guards concurrent
// writers; Level is a stored copy of the derived level kept for ordering.
type Module struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	UserID        uint      `gorm:"not null;index:idx_modules_user_kind,priority:1;index:idx_modules_user_active,priority:1" json:"user_id"`
	HabitKind     string    `gorm:"not null;size:32;index:idx_modules_user_kind,priority:2" json:"habit_kind"`
	StartDate     time.Time `gorm:"not null" json:"start_date"`
	DayCount      int       `gorm:"not null;default:0" json:"day_count"`
	LongestStreak int       `gorm:"not null;default:0" json:"longest_streak"`
	Points        int       `gorm:"not null;default:0" json:"points"`
	Level         int       `gorm:"not null;default:1" json:"level"`
	TotalRelapses int       `gorm:"not null;default:0" json:"total_relapses"`
	LastCheckIn   time.Time `gorm:"not null" json:"last_check_in"`
	IsActive      bool      `gorm:"not null;default:true;index:idx_modules_user_active,priority:2" json:"is_active"`
	Version       int       `gorm:"not null;default:0" json:"-"`

	Relapses []ModuleRelapse `gorm:"foreignKey:ModuleID" json:"relapse_history"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ModuleRelapse is an insert-only relapse history row. Seq preserves append
// order within a module.
type ModuleRelapse struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	ModuleID      string    `gorm:"not null;size:36;uniqueIndex:ux_module_relapse_seq,priority:1" json:"-"`
	Seq           int       `gorm:"not null;uniqueIndex:ux_module_relapse_seq,priority:2" json:"-"`
	Date          time.Time `gorm:"not null" json:"date"`
	DaysSinceLast int       `gorm:"not null;default:0" json:"days_since_last"`
	Notes         string    `gorm:"size:500" json:"notes,omitempty"`
}

func (r *ModuleRelapse) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Domain converts the row into the engine's value object.
func (m *Module) Domain() *streak.Module {
	relapses := make([]ModuleRelapse, len(m.Relapses))
	copy(relapses, m.Relapses)
	sort.Slice(relapses, func(i, j int) bool { return relapses[i].Seq < relapses[j].Seq })

	d := &streak.Module{
		ID:            m.ID,
		OwnerID:       m.UserID,
		Kind:          streak.HabitKind(m.HabitKind),
		StartDate:     m.StartDate,
		DayCount:      m.DayCount,
		LongestStreak: m.LongestStreak,
		Points:        m.Points,
		TotalRelapses: m.TotalRelapses,
		LastCheckIn:   m.LastCheckIn,
		Active:        m.IsActive,
		Relapses:      make([]streak.Relapse, 0, len(relapses)),
	}
	for _, r := range relapses {
		d.Relapses = append(d.Relapses, streak.Relapse{
			Date:          r.Date,
			DaysSinceLast: r.DaysSinceLast,
			Notes:         r.Notes,
		})
	}
	return d
}

// NewModuleRow builds a row for a freshly created domain module.
func NewModuleRow(d *streak.Module) Module {
	row := Module{ID: d.ID, UserID: d.OwnerID, HabitKind: string(d.Kind), StartDate: d.StartDate}
	row.CopyCounters(d)
	row.Relapses = RelapseRows(d, 0)
	return row
}

// CopyCounters overwrites the mutable columns from d.
func (m *Module) CopyCounters(d *streak.Module) {
	m.DayCount = d.DayCount
	m.LongestStreak = d.LongestStreak
	m.Points = d.Points
	m.Level = d.Level()
	m.TotalRelapses = d.TotalRelapses
	m.LastCheckIn = d.LastCheckIn
	m.IsActive = d.Active
}

// RelapseRows returns rows for d's history entries from index from onwards.
func RelapseRows(d *streak.Module, from int) []ModuleRelapse {
	var rows []ModuleRelapse
	for i := from; i < len(d.Relapses); i++ {
		r := d.Relapses[i]
		rows = append(rows, ModuleRelapse{
			ModuleID:      d.ID,
			Seq:           i + 1,
			Date:          r.Date,
			DaysSinceLast: r.DaysSinceLast,
			Notes:         r.Notes,
		})
	}
	return rows
}
