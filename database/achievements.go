// database/achievements.go - Achievement catalog and unlock persistence
package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pare/achievement"
	"pare/models"
)

type AchievementStore struct {
	db *gorm.DB
}

func NewAchievementStore(db *gorm.DB) *AchievementStore {
	return &AchievementStore{db: db}
}

// LoadCatalog reads and validates the catalog table. A malformed row fails
// the load rather than reaching evaluation.
func (s *AchievementStore) LoadCatalog(ctx context.Context) (*achievement.Catalog, error) {
	var rows []models.Achievement
	if err := s.db.WithContext(ctx).Order("requirement ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	defs := make([]achievement.Definition, 0, len(rows))
	for _, r := range rows {
		defs = append(defs, r.Definition())
	}

	c, err := achievement.NewCatalog(defs)
	if err != nil {
		return nil, fmt.Errorf("invalid achievement catalog: %w", err)
	}
	return c, nil
}

// ReplaceCatalog swaps the whole catalog in one transaction. Existing unlocks
// are kept; they refer to achievements by code.
func (s *AchievementStore) ReplaceCatalog(ctx context.Context, c *achievement.Catalog) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Achievement{}).Error; err != nil {
			return err
		}

		defs := c.Definitions()
		if len(defs) == 0 {
			return nil
		}
		rows := make([]models.Achievement, 0, len(defs))
		for _, d := range defs {
			rows = append(rows, models.AchievementFromDefinition(d))
		}
		return translate(tx.Create(&rows).Error)
	})
}

// UnlockedCodes lists the achievement codes already unlocked for a module.
func (s *AchievementStore) UnlockedCodes(ctx context.Context, userID uint, moduleID string) ([]string, error) {
	var codes []string
	err := s.db.WithContext(ctx).Model(&models.UserAchievement{}).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		Pluck("achievement_code", &codes).Error
	return codes, err
}

// UnlockIfAbsent records an unlock unless one already exists for the same
// (user, achievement, module). It reports whether this call inserted the
// row; losing a race to a concurrent insert is not an error.
func (s *AchievementStore) UnlockIfAbsent(ctx context.Context, userID uint, moduleID, code string, at time.Time) (bool, error) {
	row := models.UserAchievement{
		UserID:          userID,
		AchievementCode: code,
		ModuleID:        moduleID,
		UnlockedAt:      at,
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Unlocks lists a user's unlocks, newest first. An empty moduleID lists all.
func (s *AchievementStore) Unlocks(ctx context.Context, userID uint, moduleID string) ([]models.UserAchievement, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if moduleID != "" {
		q = q.Where("module_id = ?", moduleID)
	}

	var rows []models.UserAchievement
	err := q.Order("unlocked_at DESC").Find(&rows).Error
	return rows, err
}

// CountUnlocks counts every unlock a user holds across modules.
func (s *AchievementStore) CountUnlocks(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.UserAchievement{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n, err
}
