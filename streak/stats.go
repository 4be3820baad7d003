package streak

import "math"

// Stats are read-only figures derived from a module's state.
type Stats struct {
	DayCount                   int `json:"day_count"`
	CurrentStreak              int `json:"current_streak"`
	LongestStreak              int `json:"longest_streak"`
	TotalRelapses              int `json:"total_relapses"`
	Level                      int `json:"level"`
	Points                     int `json:"points"`
	AverageDaysBetweenRelapses int `json:"average_days_between_relapses"`
	SuccessRate                int `json:"success_rate"`
}

// Stats computes the presentation statistics for m.
func (m *Module) Stats() Stats {
	s := Stats{
		DayCount:                   m.DayCount,
		CurrentStreak:              m.CurrentStreak(),
		LongestStreak:              m.LongestStreak,
		TotalRelapses:              m.TotalRelapses,
		Level:                      m.Level(),
		Points:                     m.Points,
		AverageDaysBetweenRelapses: m.DayCount,
		SuccessRate:                100,
	}

	if m.TotalRelapses > 0 {
		s.AverageDaysBetweenRelapses = m.DayCount / m.TotalRelapses
		ratio := float64(m.DayCount) / float64(m.DayCount+m.TotalRelapses)
		s.SuccessRate = int(math.Round(ratio * 100))
	}

	return s
}
