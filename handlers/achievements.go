package handlers

import (
	"github.com/gofiber/fiber/v2"

	"pare/utils"
)

// GetAchievements lists the catalog in requirement order.
func (h *Handler) GetAchievements(c *fiber.Ctx) error {
	return utils.JSONSuccess(c, fiber.Map{"achievements": h.catalog.Snapshot().Definitions()})
}

// GetUserAchievements lists the caller's unlocks, optionally for one module.
func (h *Handler) GetUserAchievements(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	unlocked, err := h.modules.UserAchievements(c.UserContext(), uid, c.Query("module_id"))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.Map{"achievements": unlocked})
}

func (h *Handler) GetAchievementStatus(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	status, err := h.modules.AchievementStatus(c.UserContext(), uid, c.Query("module_id"))
	if err != nil {
		return moduleError(err)
	}
	return utils.JSONSuccess(c, fiber.Map{"achievements": status})
}

// CheckAchievements evaluates one module and returns what it newly unlocked.
func (h *Handler) CheckAchievements(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	unlocked, err := h.modules.CheckAchievements(c.UserContext(), uid, c.Params("moduleId"))
	if err != nil {
		return moduleError(err)
	}
	return utils.JSONSuccess(c, fiber.Map{"new_achievements": unlocked})
}
