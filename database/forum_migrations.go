// database/forum_migrations.go - Forum Database Migrations
package database

import (
	"gorm.io/gorm"

	"pare/logger"
	"pare/models"
)

// RunForumMigrations creates the community forum tables.
func RunForumMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.ForumPost{},
		&models.ForumReply{},
		&models.ForumLike{},
	); err != nil {
		return err
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_forum_posts_feed ON forum_posts(is_active, is_pinned DESC, created_at DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_forum_posts_user ON forum_posts(user_id, created_at DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_forum_replies_post_created ON forum_replies(post_id, created_at)")

	logger.Debug("forum migrations completed")
	return nil
}
