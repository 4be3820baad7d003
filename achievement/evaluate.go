package achievement

import (
	"math"

	"pare/streak"
)

// Value returns the module counter a definition of type t is compared with.
func Value(t Type, m *streak.Module) int {
	if t == TypeStreak {
		return m.CurrentStreak()
	}
	return m.DayCount
}

// Evaluate returns, in catalog order, the ids of definitions the module
// qualifies for that are not in unlocked. Evaluating again after recording
// the result into unlocked yields nothing.
func Evaluate(m *streak.Module, c *Catalog, unlocked map[string]bool) []string {
	var qualified []string
	for _, d := range c.Definitions() {
		if unlocked[d.ID] {
			continue
		}
		if Value(d.Type, m) >= d.Requirement {
			qualified = append(qualified, d.ID)
		}
	}
	return qualified
}

// UnlockedSet builds the lookup set Evaluate expects.
func UnlockedSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// Progress describes how close a module is to a definition.
type Progress struct {
	Current    int `json:"current"`
	Required   int `json:"required"`
	Percentage int `json:"percentage"`
}

// ProgressFor reports progress towards d, capped at 100 percent.
func ProgressFor(d Definition, m *streak.Module) Progress {
	current := Value(d.Type, m)
	p := Progress{Current: current, Required: d.Requirement, Percentage: 100}
	if d.Requirement > 0 {
		pct := math.Min(float64(current)/float64(d.Requirement)*100, 100)
		p.Percentage = int(math.Round(pct))
	}
	return p
}
