package handlers

import (
	"github.com/gofiber/fiber/v2"

	"pare/utils"
)

type CreateModuleRequest struct {
	HabitKind string `json:"habit_kind"`
}

type RelapseRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) ListModules(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	modules, err := h.modules.List(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.Map{"modules": modules})
}

func (h *Handler) CreateModule(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	var req CreateModuleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}

	module, err := h.modules.Create(c.UserContext(), uid, req.HabitKind)
	if err != nil {
		return moduleError(err)
	}
	return utils.Created(c, fiber.Map{"module": module})
}

func (h *Handler) GetModule(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	module, err := h.modules.Get(c.UserContext(), c.Params("id"), uid)
	if err != nil {
		return moduleError(err)
	}
	return utils.JSONSuccess(c, fiber.Map{"module": module})
}

func (h *Handler) DeleteModule(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	if err := h.modules.Deactivate(c.UserContext(), c.Params("id"), uid); err != nil {
		return moduleError(err)
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "Module deactivated"})
}

// CheckIn credits elapsed days and reports any achievements it unlocked.
func (h *Handler) CheckIn(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	res, err := h.modules.CheckIn(c.UserContext(), c.Params("id"), uid)
	if err != nil {
		return moduleError(err)
	}
	return utils.JSONSuccess(c, fiber.Map{
		"module":           res.Module,
		"days_credited":    res.DaysCredited,
		"new_achievements": res.NewAchievements,
	})
}

func (h *Handler) ReportRelapse(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	// Notes are optional, so an empty body is accepted.
	var req RelapseRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest("Invalid request body")
		}
	}

	res, err := h.modules.ReportRelapse(c.UserContext(), c.Params("id"), uid, req.Notes)
	if err != nil {
		return moduleError(err)
	}
	return utils.JSONSuccess(c, fiber.Map{"module": res.Module, "relapse": res.Relapse})
}

func (h *Handler) GetModuleStats(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	stats, err := h.modules.Stats(c.UserContext(), c.Params("id"), uid)
	if err != nil {
		return moduleError(err)
	}
	return utils.JSONSuccess(c, fiber.Map{
		"module":          stats.Module,
		"stats":           stats.Stats,
		"relapse_history": stats.Module.RelapseHistory,
	})
}
