// database/migrate.go - Database Migration Runner
package database

import (
	"fmt"

	"gorm.io/gorm"

	"pare/logger"
	"pare/models"
)

// RunMigrations creates or updates every table and index.
func RunMigrations(db *gorm.DB) error {
	logger.Info("running database migrations")

	if err := db.AutoMigrate(
		&models.User{},
		&models.Module{},
		&models.ModuleRelapse{},
		&models.Achievement{},
		&models.UserAchievement{},
	); err != nil {
		return fmt.Errorf("core migrations: %w", err)
	}

	if err := RunForumMigrations(db); err != nil {
		return fmt.Errorf("forum migrations: %w", err)
	}

	createCoreIndexes(db)

	logger.Info("migrations completed")
	return nil
}

// createCoreIndexes adds indexes the struct tags cannot express.
func createCoreIndexes(db *gorm.DB) {
	db.Exec("CREATE INDEX IF NOT EXISTS idx_modules_active_day_count ON modules(user_id, is_active, day_count DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_user_achievements_unlocked ON user_achievements(user_id, unlocked_at DESC)")
}
