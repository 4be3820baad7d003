package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"pare/logger"
	"pare/models"
	"pare/utils"
)

type UpdateProfileRequest struct {
	Name string `json:"name"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type ChangePlanRequest struct {
	Plan string `json:"plan"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// PlanInfo is the caller's plan as it applies right now.
type PlanInfo struct {
	Plan        models.Plan `json:"plan"`
	Effective   models.Plan `json:"effective"`
	ModuleLimit int         `json:"module_limit"`
}

func (h *Handler) planInfo(u *models.User) PlanInfo {
	effective := u.EffectivePlan(h.now())
	return PlanInfo{Plan: u.Plan, Effective: effective, ModuleLimit: effective.ModuleLimit()}
}

// currentUser loads the caller, rejecting deactivated accounts.
func (h *Handler) currentUser(c *fiber.Ctx) (*models.User, error) {
	id, err := userID(c)
	if err != nil {
		return nil, err
	}
	user, err := h.users.ByID(c.UserContext(), id)
	if err != nil {
		return nil, moduleError(err)
	}
	if !user.IsActive {
		return nil, fiber.NewError(fiber.StatusForbidden, "Account is deactivated")
	}
	return user, nil
}

func (h *Handler) GetCurrentUser(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.Map{"user": user, "plan": h.planInfo(user)})
}

func (h *Handler) UpdateCurrentUser(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 100 {
		return badRequest("Name must be between 1 and 100 characters")
	}

	user.Name = name
	if err := h.users.Save(c.UserContext(), user); err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.Map{"user": user})
}

func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	if len(req.NewPassword) < minPasswordLength {
		return badRequest("Password must be at least 6 characters")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Current password is incorrect")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashed)
	if err := h.users.Save(c.UserContext(), user); err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "Password updated"})
}

// ChangePlan switches the caller's plan. Paid plans run for 30 days.
// Downgrading keeps existing modules; the limit only applies to new ones.
func (h *Handler) ChangePlan(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}

	var req ChangePlanRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	plan, ok := models.ParsePlan(req.Plan)
	if !ok {
		return badRequest("Invalid plan")
	}

	user.SetPlan(plan, h.now().UTC())
	if err := h.users.Save(c.UserContext(), user); err != nil {
		return err
	}

	logger.Info("plan changed", "user", user.ID, "plan", plan)
	return utils.JSONSuccess(c, fiber.Map{"user": user, "plan": h.planInfo(user)})
}

func (h *Handler) GetDashboard(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}

	dashboard, err := h.modules.Dashboard(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.Map{
		"user":      user,
		"plan":      h.planInfo(user),
		"dashboard": dashboard,
	})
}

// DeleteAccount deactivates the caller's account after confirming the
// password. Data is kept.
func (h *Handler) DeleteAccount(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}

	var req DeleteAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Password is incorrect")
	}

	user.IsActive = false
	if err := h.users.Save(c.UserContext(), user); err != nil {
		return err
	}

	logger.Info("account deactivated", "user", user.ID)
	return utils.JSONSuccess(c, fiber.Map{"message": "Account deactivated"})
}
