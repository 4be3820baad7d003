package handlers

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"pare/database"
	"pare/middleware"
	"pare/models"
	"pare/utils"
)

const (
	forumPageSize    = 20
	forumMaxPageSize = 50
)

type PostRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Category *string `json:"category"`
}

type ReplyRequest struct {
	Content string `json:"content"`
}

// AuthorInfo shows who wrote a post and how far along they are.
type AuthorInfo struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Level    int    `json:"level"`
	DayCount int    `json:"day_count"`
}

type ReplyView struct {
	models.ForumReply
	Author AuthorInfo `json:"author"`
}

type PostView struct {
	models.ForumPost
	Author     AuthorInfo  `json:"author"`
	Likes      int64       `json:"likes"`
	ReplyCount int64       `json:"reply_count"`
	LikedByMe  bool        `json:"liked_by_me"`
	Replies    []ReplyView `json:"replies,omitempty"`
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func validatePost(p *models.ForumPost) error {
	switch {
	case runeLen(p.Title) < 5 || runeLen(p.Title) > 200:
		return badRequest("Title must be between 5 and 200 characters")
	case runeLen(p.Content) < 10 || runeLen(p.Content) > 5000:
		return badRequest("Content must be between 10 and 5000 characters")
	}
	return nil
}

func parseCategory(s string) (models.ForumCategory, error) {
	cat, ok := models.ParseForumCategory(s)
	if !ok {
		return "", badRequest("Invalid category")
	}
	return cat, nil
}

func forumError(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Post not found")
	}
	return err
}

// enrich attaches author progress, like and reply counts to posts.
func (h *Handler) enrich(ctx context.Context, posts []models.ForumPost, viewer uint) ([]PostView, error) {
	ids := make([]string, 0, len(posts))
	seen := map[uint]bool{}
	var authors []uint
	addAuthor := func(id uint) {
		if !seen[id] {
			seen[id] = true
			authors = append(authors, id)
		}
	}
	for _, p := range posts {
		ids = append(ids, p.ID)
		addAuthor(p.UserID)
		for _, r := range p.Replies {
			addAuthor(r.UserID)
		}
	}

	tops, err := h.tops.TopModules(ctx, authors)
	if err != nil {
		return nil, err
	}
	likes, err := h.forum.LikeCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	replies, err := h.forum.ReplyCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	liked, err := h.forum.LikedBy(ctx, viewer, ids)
	if err != nil {
		return nil, err
	}

	author := func(id uint, u *models.User) AuthorInfo {
		info := AuthorInfo{ID: id, Level: 1}
		if u != nil {
			info.Name = u.Name
		}
		if top, ok := tops[id]; ok {
			info.Level = top.Level
			info.DayCount = top.DayCount
		}
		return info
	}

	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		v := PostView{
			ForumPost:  p,
			Author:     author(p.UserID, p.Author),
			Likes:      likes[p.ID],
			ReplyCount: replies[p.ID],
			LikedByMe:  liked[p.ID],
		}
		for _, r := range p.Replies {
			v.Replies = append(v.Replies, ReplyView{ForumReply: r, Author: author(r.UserID, r.Author)})
		}
		views = append(views, v)
	}
	return views, nil
}

func (h *Handler) GetForumStats(c *fiber.Ctx) error {
	stats, err := h.forum.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.Map{"stats": stats})
}

func (h *Handler) ListPosts(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	var category models.ForumCategory
	if raw := c.Query("category"); raw != "" {
		if category, err = parseCategory(raw); err != nil {
			return err
		}
	}
	page, limit := utils.PageParams(c, forumPageSize, forumMaxPageSize)

	ctx := c.UserContext()
	posts, total, err := h.forum.ListPosts(ctx, category, page, limit)
	if err != nil {
		return err
	}
	views, err := h.enrich(ctx, posts, uid)
	if err != nil {
		return err
	}

	return utils.JSONSuccess(c, fiber.Map{
		"posts":      views,
		"pagination": utils.NewPagination(page, limit, total),
	})
}

func (h *Handler) CreatePost(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	var req PostRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	if req.Title == nil || req.Content == nil {
		return badRequest("Title and content are required")
	}

	post := models.ForumPost{
		UserID:   uid,
		Title:    strings.TrimSpace(*req.Title),
		Content:  strings.TrimSpace(*req.Content),
		Category: models.CategoryMotivation,
		IsActive: true,
	}
	if req.Category != nil && *req.Category != "" {
		if post.Category, err = parseCategory(*req.Category); err != nil {
			return err
		}
	}
	if err := validatePost(&post); err != nil {
		return err
	}

	ctx := c.UserContext()
	if err := h.forum.CreatePost(ctx, &post); err != nil {
		return err
	}
	created, err := h.forum.GetPost(ctx, post.ID)
	if err != nil {
		return forumError(err)
	}
	views, err := h.enrich(ctx, []models.ForumPost{*created}, uid)
	if err != nil {
		return err
	}
	return utils.Created(c, fiber.Map{"post": views[0]})
}

func (h *Handler) GetPost(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	post, err := h.forum.GetPost(ctx, c.Params("id"))
	if err != nil {
		return forumError(err)
	}
	views, err := h.enrich(ctx, []models.ForumPost{*post}, uid)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.Map{"post": views[0]})
}

// UpdatePost edits the caller's own post. Absent fields are left as they are.
func (h *Handler) UpdatePost(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	post, err := h.forum.OwnedPost(ctx, c.Params("id"), uid)
	if err != nil {
		return forumError(err)
	}

	var req PostRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	if req.Title != nil {
		post.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		post.Content = strings.TrimSpace(*req.Content)
	}
	if req.Category != nil {
		if post.Category, err = parseCategory(*req.Category); err != nil {
			return err
		}
	}
	if err := validatePost(post); err != nil {
		return err
	}

	if err := h.forum.SavePost(ctx, post); err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.Map{"post": post})
}

// DeletePost hides a post. Authors may delete their own posts, admins any.
func (h *Handler) DeletePost(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	var post *models.ForumPost
	if middleware.IsAdmin(c) {
		post, err = h.forum.GetPost(ctx, c.Params("id"))
	} else {
		post, err = h.forum.OwnedPost(ctx, c.Params("id"), uid)
	}
	if err != nil {
		return forumError(err)
	}

	post.IsActive = false
	if err := h.forum.SavePost(ctx, post); err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "Post deleted"})
}

func (h *Handler) ToggleLike(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	post, err := h.forum.GetPost(ctx, c.Params("id"))
	if err != nil {
		return forumError(err)
	}

	liked, count, err := h.forum.ToggleLike(ctx, post.ID, uid)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.Map{"liked": liked, "likes": count})
}

func (h *Handler) AddReply(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	var req ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	content := strings.TrimSpace(req.Content)
	if content == "" || runeLen(content) > 1000 {
		return badRequest("Reply must be between 1 and 1000 characters")
	}

	reply := models.ForumReply{PostID: c.Params("id"), UserID: uid, Content: content}
	if err := h.forum.AddReply(c.UserContext(), &reply); err != nil {
		return forumError(err)
	}
	return utils.Created(c, fiber.Map{"reply": reply})
}

func (h *Handler) DeleteReply(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	if err := h.forum.DeleteReply(c.UserContext(), c.Params("id"), c.Params("replyId"), uid); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Reply not found")
		}
		return err
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "Reply deleted"})
}
