// models/achievement.go
package models

import (
	"time"

	"pare/achievement"
)

// Achievement is a catalog row. Code is the stable identifier clients and
// unlocks refer to.
type Achievement struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	Code        string `gorm:"not null;uniqueIndex;size:64" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"not null" json:"description"`
	Requirement int    `gorm:"not null;index" json:"requirement"`
	Points      int    `gorm:"not null" json:"points"`
	Type        string `gorm:"not null;size:20" json:"type"`
	Icon        string `gorm:"default:'trophy'" json:"icon"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a Achievement) Definition() achievement.Definition {
	return achievement.Definition{
		ID:          a.Code,
		Title:       a.Title,
		Description: a.Description,
		Requirement: a.Requirement,
		Points:      a.Points,
		Type:        achievement.Type(a.Type),
		Icon:        a.Icon,
	}
}

func AchievementFromDefinition(d achievement.Definition) Achievement {
	return Achievement{
		Code:        d.ID,
		Title:       d.Title,
		Description: d.Description,
		Requirement: d.Requirement,
		Points:      d.Points,
		Type:        string(d.Type),
		Icon:        d.Icon,
	}
}

// UserAchievement records one unlock. At most one row exists per
// (user, achievement, module).
type UserAchievement struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	UserID          uint      `gorm:"not null;uniqueIndex:ux_user_achievement_module,priority:1;index" json:"user_id"`
	AchievementCode string    `gorm:"not null;size:64;uniqueIndex:ux_user_achievement_module,priority:2" json:"achievement_id"`
	ModuleID        string    `gorm:"not null;size:36;uniqueIndex:ux_user_achievement_module,priority:3;index" json:"module_id"`
	UnlockedAt      time.Time `gorm:"not null" json:"unlocked_at"`
}
