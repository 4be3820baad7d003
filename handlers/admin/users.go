package admin

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"pare/database"
	"pare/models"
	"pare/utils"
)

type UpdateUserRequest struct {
	Plan     *string `json:"plan"`
	IsActive *bool   `json:"is_active"`
	IsAdmin  *bool   `json:"is_admin"`
}

// GetUsers returns all users with pagination
func (h *Handler) GetUsers(c *fiber.Ctx) error {
	page, limit := utils.PageParams(c, 20, 100)

	users, total, err := h.users.List(c.UserContext(), c.Query("search"), page, limit)
	if err != nil {
		return err
	}

	return utils.JSONSuccess(c, fiber.Map{
		"users":      users,
		"pagination": utils.NewPagination(page, limit, total),
	})
}

func (h *Handler) loadUser(c *fiber.Ctx) (*models.User, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid user id")
	}

	user, err := h.users.ByID(c.UserContext(), uint(id))
	if errors.Is(err, database.ErrNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "User not found")
	}
	return user, err
}

// GetUser returns a single user by ID
func (h *Handler) GetUser(c *fiber.Ctx) error {
	user, err := h.loadUser(c)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.Map{"user": user})
}

// UpdateUser changes a user's plan, activation or admin flag. A plan set
// here follows the same 30 day expiry as a self-service change.
func (h *Handler) UpdateUser(c *fiber.Ctx) error {
	user, err := h.loadUser(c)
	if err != nil {
		return err
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Plan != nil {
		plan, ok := models.ParsePlan(*req.Plan)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid plan")
		}
		user.SetPlan(plan, time.Now().UTC())
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}

	if err := h.users.Save(c.UserContext(), user); err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.Map{"user": user})
}
