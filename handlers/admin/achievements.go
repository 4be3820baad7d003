package admin

import (
	"github.com/gofiber/fiber/v2"

	"pare/achievement"
	"pare/logger"
	"pare/utils"
)

type ReplaceCatalogRequest struct {
	Achievements []achievement.Definition `json:"achievements"`
}

// GetAchievements returns the catalog in effect
func (h *Handler) GetAchievements(c *fiber.Ctx) error {
	return utils.JSONSuccess(c, fiber.Map{"achievements": h.catalog.Snapshot().Definitions()})
}

// ReplaceAchievements swaps the whole catalog. The new catalog is validated
// before anything is written; existing unlocks are kept.
func (h *Handler) ReplaceAchievements(c *fiber.Ctx) error {
	var req ReplaceCatalogRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if len(req.Achievements) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "At least one achievement is required")
	}

	if _, err := achievement.NewCatalog(req.Achievements); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	catalog, err := h.catalog.Reseed(c.UserContext(), req.Achievements)
	if err != nil {
		return err
	}

	logger.Info("achievement catalog replaced", "achievements", catalog.Len())
	return utils.JSONSuccess(c, fiber.Map{"achievements": catalog.Definitions()})
}

// InitializeAchievements restores the default catalog
func (h *Handler) InitializeAchievements(c *fiber.Ctx) error {
	catalog, err := h.catalog.Reseed(c.UserContext(), achievement.Defaults())
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.Map{
		"message":      "Achievements initialized",
		"achievements": catalog.Definitions(),
	})
}

// ReloadAchievements re-reads the catalog table, picking up changes made by
// the admin CLI.
func (h *Handler) ReloadAchievements(c *fiber.Ctx) error {
	if err := h.catalog.Reload(c.UserContext()); err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.Map{"achievements": h.catalog.Snapshot().Definitions()})
}
