// models/forum.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ForumCategory string

const (
	CategoryVictory    ForumCategory = "victory"
	CategoryTip        ForumCategory = "tip"
	CategoryMotivation ForumCategory = "motivation"
	CategoryQuestion   ForumCategory = "question"
	CategoryVenting    ForumCategory = "venting"
)

var ForumCategories = []ForumCategory{CategoryVictory, CategoryTip, CategoryMotivation, CategoryQuestion, CategoryVenting}

func ParseForumCategory(s string) (ForumCategory, bool) {
	for _, c := range ForumCategories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

type ForumPost struct {
	ID       string        `gorm:"primaryKey;size:36" json:"id"`
	UserID   uint          `gorm:"not null;index" json:"user_id"`
	Author   *User         `gorm:"foreignKey:UserID" json:"-"`
	Title    string        `gorm:"not null;size:200" json:"title"`
	Content  string        `gorm:"not null;type:text" json:"content"`
	Category ForumCategory `gorm:"not null;size:20;default:'motivation';index" json:"category"`
	IsActive bool          `gorm:"not null;default:true;index" json:"is_active"`
	IsPinned bool          `gorm:"not null;default:false" json:"is_pinned"`

	Replies []ForumReply `gorm:"foreignKey:PostID" json:"replies,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *ForumPost) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type ForumReply struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"not null;size:36;index" json:"post_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	Author    *User     `gorm:"foreignKey:UserID" json:"-"`
	Content   string    `gorm:"not null;size:1000" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *ForumReply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// ForumLike is one user's like of a post.
type ForumLike struct {
	PostID    string    `gorm:"primaryKey;size:36" json:"post_id"`
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
