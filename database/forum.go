// database/forum.go - Community forum persistence
package database

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pare/models"
)

type ForumStore struct {
	db *gorm.DB
}

func NewForumStore(db *gorm.DB) *ForumStore {
	return &ForumStore{db: db}
}

// ListPosts returns one page of active posts, pinned first then newest, and
// the total number of matching posts.
func (s *ForumStore) ListPosts(ctx context.Context, category models.ForumCategory, page, limit int) ([]models.ForumPost, int64, error) {
	base := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.ForumPost{}).Where("is_active = ?", true)
		if category != "" {
			q = q.Where("category = ?", category)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []models.ForumPost
	err := base().Preload("Author").
		Order("is_pinned DESC, created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&posts).Error
	return posts, total, err
}

// GetPost loads an active post with its replies in posting order.
func (s *ForumStore) GetPost(ctx context.Context, id string) (*models.ForumPost, error) {
	var p models.ForumPost
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Replies.Author").
		Where("id = ? AND is_active = ?", id, true).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// OwnedPost loads an active post written by userID.
func (s *ForumStore) OwnedPost(ctx context.Context, id string, userID uint) (*models.ForumPost, error) {
	var p models.ForumPost
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *ForumStore) CreatePost(ctx context.Context, p *models.ForumPost) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

func (s *ForumStore) SavePost(ctx context.Context, p *models.ForumPost) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error
}

// ToggleLike flips userID's like on a post and returns the new state and
// like count.
func (s *ForumStore) ToggleLike(ctx context.Context, postID string, userID uint) (bool, int64, error) {
	var liked bool
	var count int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.ForumLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			like := models.ForumLike{PostID: postID, UserID: userID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return err
			}
			liked = true
		}
		return tx.Model(&models.ForumLike{}).Where("post_id = ?", postID).Count(&count).Error
	})
	return liked, count, err
}

type postCount struct {
	PostID string
	N      int64
}

func (s *ForumStore) countBy(ctx context.Context, model interface{}, postIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	var counts []postCount
	err := s.db.WithContext(ctx).Model(model).
		Select("post_id, COUNT(*) AS n").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		out[c.PostID] = c.N
	}
	return out, nil
}

func (s *ForumStore) LikeCounts(ctx context.Context, postIDs []string) (map[string]int64, error) {
	return s.countBy(ctx, &models.ForumLike{}, postIDs)
}

func (s *ForumStore) ReplyCounts(ctx context.Context, postIDs []string) (map[string]int64, error) {
	return s.countBy(ctx, &models.ForumReply{}, postIDs)
}

// LikedBy reports which of postIDs userID has liked.
func (s *ForumStore) LikedBy(ctx context.Context, userID uint, postIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	var liked []string
	err := s.db.WithContext(ctx).Model(&models.ForumLike{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &liked).Error
	if err != nil {
		return nil, err
	}
	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}

// AddReply appends a reply to an active post.
func (s *ForumStore) AddReply(ctx context.Context, r *models.ForumReply) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.ForumPost{}).
		Where("id = ? AND is_active = ?", r.PostID, true).
		Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return translate(s.db.WithContext(ctx).Create(r).Error)
}

// DeleteReply removes a reply. Only its author or the post's author may.
func (s *ForumStore) DeleteReply(ctx context.Context, postID, replyID string, userID uint) error {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return err
	}

	var reply models.ForumReply
	if err := s.db.WithContext(ctx).
		Where("id = ? AND post_id = ?", replyID, postID).
		First(&reply).Error; err != nil {
		return translate(err)
	}
	if reply.UserID != userID && post.UserID != userID {
		return ErrNotFound
	}
	return s.db.WithContext(ctx).Delete(&reply).Error
}

// ForumStats summarises community activity.
type ForumStats struct {
	TotalPosts   int64                          `json:"total_posts"`
	TotalReplies int64                          `json:"total_replies"`
	TotalLikes   int64                          `json:"total_likes"`
	ByCategory   map[models.ForumCategory]int64 `json:"by_category"`
}

func (s *ForumStore) Stats(ctx context.Context) (*ForumStats, error) {
	db := s.db.WithContext(ctx)
	st := &ForumStats{ByCategory: make(map[models.ForumCategory]int64)}

	if err := db.Model(&models.ForumPost{}).Where("is_active = ?", true).Count(&st.TotalPosts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.ForumReply{}).
		Joins("JOIN forum_posts ON forum_posts.id = forum_replies.post_id").
		Where("forum_posts.is_active = ?", true).
		Count(&st.TotalReplies).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.ForumLike{}).Count(&st.TotalLikes).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Category models.ForumCategory
		N        int64
	}
	if err := db.Model(&models.ForumPost{}).
		Select("category, COUNT(*) AS n").
		Where("is_active = ?", true).
		Group("category").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		st.ByCategory[r.Category] = r.N
	}
	return st, nil
}
