package admin

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"pare/services"
	"pare/utils"
)

// ManualSweep runs a check-in sweep now instead of waiting for the schedule.
func (h *Handler) ManualSweep(c *fiber.Ctx) error {
	if h.sweep == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Sweep unavailable")
	}

	report, err := h.sweep.RunOnce(c.UserContext())
	if errors.Is(err, services.ErrSweepRunning) {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "Sweep finished", "report": report})
}
