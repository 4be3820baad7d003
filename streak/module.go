// streak/module.go
//
// Package streak tracks one user's abstinence from one habit: day counting,
// relapses, points and levels. It performs no I/O; callers load a Module,
// apply RecordProgress or RecordRelapse, and persist the result.
package streak

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// HabitKind is the closed set of habits a module can track.
type HabitKind string

const (
	Pornography HabitKind = "pornography"
	SocialMedia HabitKind = "social_media"
	Smoking     HabitKind = "smoking"
	Alcohol     HabitKind = "alcohol"
	Shopping    HabitKind = "shopping"
)

// Kinds lists every supported habit in display order.
var Kinds = []HabitKind{Pornography, SocialMedia, Smoking, Alcohol, Shopping}

const (
	// PointsPerDay is awarded for every clean calendar day credited.
	PointsPerDay = 10
	// PointsPerLevel is the number of points between two levels.
	PointsPerLevel = 100
	// MaxNoteLength bounds relapse notes, counted in runes.
	MaxNoteLength = 500
)

var (
	ErrInvalidKind  = errors.New("invalid habit kind")
	ErrMissingOwner = errors.New("module owner is required")
	ErrMissingID    = errors.New("module id is required")
	ErrInvariant    = errors.New("module invariant violated")
)

// ParseHabitKind validates a client supplied habit name.
func ParseHabitKind(s string) (HabitKind, error) {
	k := HabitKind(strings.TrimSpace(s))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Relapse is one entry of a module's relapse history. Entries are appended
// and never modified afterwards.
type Relapse struct {
	Date          time.Time `json:"date"`
	DaysSinceLast int       `json:"days_since_last"`
	Notes         string    `json:"notes,omitempty"`
}

// Module is one user's tracked instance of a habit.
//
// DayCount doubles as the current streak: both grow together on progress and
// both drop to zero on relapse, so only one counter is kept.
type Module struct {
	ID            string
	OwnerID       uint
	Kind          HabitKind
	StartDate     time.Time
	DayCount      int
	LongestStreak int
	Points        int
	TotalRelapses int
	LastCheckIn   time.Time
	Relapses      []Relapse
	Active        bool
}

// New creates a fresh active module whose clock starts at now.
func New(id string, ownerID uint, kind HabitKind, now time.Time) (*Module, error) {
	m := &Module{
		ID:          id,
		OwnerID:     ownerID,
		Kind:        kind,
		StartDate:   now,
		LastCheckIn: now,
		Active:      true,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// CurrentStreak returns the number of consecutive clean days.
func (m *Module) CurrentStreak() int {
	return m.DayCount
}

// Level is derived from points and never stored independently.
func (m *Module) Level() int {
	return LevelFor(m.Points)
}

// LevelFor returns the level reached with the given number of points.
func LevelFor(points int) int {
	if points < 0 {
		points = 0
	}
	return points/PointsPerLevel + 1
}

// Validate checks the identity fields and the counter invariants. Stores call
// it on every record they load so corrupt rows never reach the engine.
func (m *Module) Validate() error {
	if m.ID == "" {
		return ErrMissingID
	}
	if m.OwnerID == 0 {
		return ErrMissingOwner
	}
	if _, err := ParseHabitKind(string(m.Kind)); err != nil {
		return err
	}
	switch {
	case m.DayCount < 0:
		return fmt.Errorf("%w: negative day count %d", ErrInvariant, m.DayCount)
	case m.Points < 0:
		return fmt.Errorf("%w: negative points %d", ErrInvariant, m.Points)
	case m.TotalRelapses < 0:
		return fmt.Errorf("%w: negative relapse total %d", ErrInvariant, m.TotalRelapses)
	case m.LongestStreak < m.DayCount:
		return fmt.Errorf("%w: longest streak %d below current %d", ErrInvariant, m.LongestStreak, m.DayCount)
	case len(m.Relapses) > m.TotalRelapses:
		return fmt.Errorf("%w: %d history entries for %d relapses", ErrInvariant, len(m.Relapses), m.TotalRelapses)
	}
	return nil
}

// Clone returns a deep copy so a caller can compare before and after states.
func (m *Module) Clone() *Module {
	c := *m
	c.Relapses = append([]Relapse(nil), m.Relapses...)
	return &c
}
