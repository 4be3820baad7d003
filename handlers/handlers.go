package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"pare/database"
	"pare/middleware"
	"pare/services"
	"pare/streak"
)

// Deps are the collaborators the HTTP handlers need.
type Deps struct {
	DB        *gorm.DB
	Modules   *services.ModuleService
	Catalog   *services.CatalogService
	Events    *services.Events
	Sweep     *services.CheckInSweep
	JWTSecret string
	JWTTTL    time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Handler serves the /api routes.
type Handler struct {
	users   *database.UserStore
	forum   *database.ForumStore
	tops    *database.ModuleStore
	modules *services.ModuleService
	catalog *services.CatalogService
	events  *services.Events

	secret string
	ttl    time.Duration
	now    func() time.Time
}

func New(d Deps) *Handler {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		users:   database.NewUserStore(d.DB),
		forum:   database.NewForumStore(d.DB),
		tops:    database.NewModuleStore(d.DB),
		modules: d.Modules,
		catalog: d.Catalog,
		events:  d.Events,
		secret:  d.JWTSecret,
		ttl:     d.JWTTTL,
		now:     now,
	}
}

// userID extracts the authenticated caller.
func userID(c *fiber.Ctx) (uint, error) {
	return middleware.GetUserID(c)
}

// moduleError maps service errors onto HTTP errors.
func moduleError(err error) error {
	switch {
	case errors.Is(err, services.ErrModuleNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Module not found")
	case errors.Is(err, services.ErrModuleExists):
		return fiber.NewError(fiber.StatusConflict, "You already have an active module for this habit")
	case errors.Is(err, services.ErrModuleLimit):
		return fiber.NewError(fiber.StatusForbidden, "Your plan does not allow more active modules. Upgrade to add more.")
	case errors.Is(err, streak.ErrInvalidKind):
		return fiber.NewError(fiber.StatusBadRequest, "Invalid module type")
	case errors.Is(err, database.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, "Module was updated concurrently, please retry")
	case errors.Is(err, database.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "User not found")
	}
	return err
}

func badRequest(message string) error {
	return fiber.NewError(fiber.StatusBadRequest, message)
}
