package handlers

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"pare/database"
	"pare/logger"
	"pare/middleware"
	"pare/models"
	"pare/utils"
)

const minPasswordLength = 6

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// Register creates a new account on the free plan
func (h *Handler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	switch {
	case req.Name == "" || req.Email == "" || req.Password == "":
		return badRequest("Name, email and password are required")
	case len(req.Name) > 100:
		return badRequest("Name must be at most 100 characters")
	case !validEmail(req.Email):
		return badRequest("Invalid email address")
	case len(req.Password) < minPasswordLength:
		return badRequest("Password must be at least 6 characters")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashedPassword),
		Plan:     models.PlanFree,
		IsActive: true,
	}
	if err := h.users.Create(c.UserContext(), &user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return badRequest("Email already registered")
		}
		return err
	}

	token, err := middleware.GenerateToken(h.secret, h.ttl, &user)
	if err != nil {
		return err
	}

	logger.Info("user registered", "user", user.ID)
	return utils.Created(c, fiber.Map{"token": token, "user": user})
}

// Login authenticates a registered user
func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest("Email and password are required")
	}

	ctx := c.UserContext()
	user, err := h.users.ByEmail(ctx, req.Email)
	if errors.Is(err, database.ErrNotFound) {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}
	if !user.IsActive {
		return fiber.NewError(fiber.StatusForbidden, "Account is deactivated")
	}

	now := h.now().UTC()
	if err := h.users.TouchLogin(ctx, user.ID, now); err != nil {
		logger.Warn("failed to record login", "user", user.ID, "err", err)
	}
	user.LastLogin = &now

	token, err := middleware.GenerateToken(h.secret, h.ttl, user)
	if err != nil {
		return err
	}

	return utils.JSONSuccess(c, fiber.Map{"token": token, "user": user})
}
