// achievement/catalog.go
//
// Package achievement decides which threshold rewards a habit module has
// earned. Definitions are validated once when a Catalog is built; Evaluate
// assumes a valid catalog.
package achievement

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Type selects which module counter a definition is compared against.
type Type string

const (
	TypeDayCount Type = "dayCount"
	TypeStreak   Type = "streak"
)

const defaultIcon = "trophy"

var (
	ErrMissingID           = errors.New("achievement id is required")
	ErrMissingTitle        = errors.New("achievement title is required")
	ErrInvalidType         = errors.New("invalid achievement type")
	ErrNegativeRequirement = errors.New("achievement requirement must not be negative")
	ErrNegativePoints      = errors.New("achievement points must not be negative")
	ErrDuplicateID         = errors.New("duplicate achievement id")
)

// Definition is one catalog entry.
type Definition struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Requirement int    `json:"requirement"`
	Points      int    `json:"points"`
	Type        Type   `json:"type"`
	Icon        string `json:"icon"`
}

// Validate rejects entries that could not be evaluated.
func (d Definition) Validate() error {
	switch {
	case strings.TrimSpace(d.ID) == "":
		return ErrMissingID
	case strings.TrimSpace(d.Title) == "":
		return fmt.Errorf("%s: %w", d.ID, ErrMissingTitle)
	case d.Type != TypeDayCount && d.Type != TypeStreak:
		return fmt.Errorf("%s: %w %q", d.ID, ErrInvalidType, d.Type)
	case d.Requirement < 0:
		return fmt.Errorf("%s: %w", d.ID, ErrNegativeRequirement)
	case d.Points < 0:
		return fmt.Errorf("%s: %w", d.ID, ErrNegativePoints)
	}
	return nil
}

// Catalog is an immutable, validated snapshot of achievement definitions
// ordered by ascending requirement. Entries with equal requirements keep
// their input order.
type Catalog struct {
	defs  []Definition
	index map[string]int
}

// NewCatalog validates defs and builds a catalog. The input slice is copied.
func NewCatalog(defs []Definition) (*Catalog, error) {
	sorted := make([]Definition, len(defs))
	copy(sorted, defs)

	for i := range sorted {
		if sorted[i].Icon == "" {
			sorted[i].Icon = defaultIcon
		}
		if err := sorted[i].Validate(); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Requirement < sorted[j].Requirement
	})

	index := make(map[string]int, len(sorted))
	for i, d := range sorted {
		if _, dup := index[d.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
		}
		index[d.ID] = i
	}

	return &Catalog{defs: sorted, index: index}, nil
}

// Definitions returns a copy of the catalog entries in evaluation order.
func (c *Catalog) Definitions() []Definition {
	if c == nil {
		return nil
	}
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Lookup finds a definition by id.
func (c *Catalog) Lookup(id string) (Definition, bool) {
	if c == nil {
		return Definition{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Len reports the number of definitions.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.defs)
}

// Defaults returns the stock catalog seeded on first start.
func Defaults() []Definition {
	return []Definition{
		{ID: "first_day", Title: "First Step", Description: "Complete your first day", Requirement: 1, Points: 10, Type: TypeDayCount, Icon: "star"},
		{ID: "week_warrior", Title: "Week Warrior", Description: "Stay clean for 7 days", Requirement: 7, Points: 50, Type: TypeDayCount, Icon: "shield"},
		{ID: "streak_10", Title: "Golden Streak", Description: "A 10 day streak", Requirement: 10, Points: 75, Type: TypeStreak, Icon: "zap"},
		{ID: "two_weeks", Title: "Two Week Fortress", Description: "14 days of determination", Requirement: 14, Points: 100, Type: TypeDayCount, Icon: "target"},
		{ID: "month_master", Title: "Month Master", Description: "A full month of success", Requirement: 30, Points: 200, Type: TypeDayCount, Icon: "award"},
		{ID: "ninety_days", Title: "90 Day Transformation", Description: "90 days of real change", Requirement: 90, Points: 500, Type: TypeDayCount, Icon: "rocket"},
		{ID: "half_year", Title: "Half Year Guardian", Description: "6 months of self discipline", Requirement: 180, Points: 1000, Type: TypeDayCount, Icon: "crown"},
		{ID: "year_legend", Title: "Year Legend", Description: "A whole year, you are an inspiration", Requirement: 365, Points: 5000, Type: TypeDayCount, Icon: "trophy"},
	}
}
