package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"pare/handlers/admin"
	"pare/middleware"
)

// Limits configures request rate limiting. A zero Max disables a limiter.
type Limits struct {
	General middleware.RateLimitConfig
	Auth    middleware.RateLimitConfig
}

// Setup registers every route on app.
func Setup(app *fiber.App, d Deps, limits Limits) *Handler {
	h := New(d)
	adm := admin.New(d.DB, d.Catalog, d.Sweep)
	auth := middleware.AuthMiddleware(d.JWTSecret, h.users)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"version":   "1.0.0",
		})
	})

	// Live module events
	app.Use("/ws", h.EventsUpgrade)
	app.Get("/ws", websocket.New(h.EventsStream))

	api := app.Group("/api", middleware.RateLimit(limits.General))

	// Auth routes with stricter rate limiting
	authGroup := api.Group("/auth", middleware.AuthRateLimit(limits.Auth))
	authGroup.Post("/register", h.Register)
	authGroup.Post("/login", h.Login)

	userGroup := api.Group("/users", auth)
	userGroup.Get("/me", h.GetCurrentUser)
	userGroup.Put("/me", h.UpdateCurrentUser)
	userGroup.Delete("/me", h.DeleteAccount)
	userGroup.Put("/password", h.ChangePassword)
	userGroup.Put("/plan", h.ChangePlan)
	userGroup.Get("/dashboard", h.GetDashboard)

	moduleGroup := api.Group("/modules", auth)
	moduleGroup.Get("/", h.ListModules)
	moduleGroup.Post("/", h.CreateModule)
	moduleGroup.Get("/:id", h.GetModule)
	moduleGroup.Delete("/:id", h.DeleteModule)
	moduleGroup.Put("/:id/checkin", h.CheckIn)
	moduleGroup.Post("/:id/relapse", h.ReportRelapse)
	moduleGroup.Get("/:id/stats", h.GetModuleStats)

	achievementGroup := api.Group("/achievements", auth)
	achievementGroup.Get("/", h.GetAchievements)
	achievementGroup.Get("/user", h.GetUserAchievements)
	achievementGroup.Get("/status", h.GetAchievementStatus)
	achievementGroup.Post("/check/:moduleId", h.CheckAchievements)
	achievementGroup.Post("/initialize", middleware.AdminOnly, adm.InitializeAchievements)

	forumGroup := api.Group("/forum", auth)
	forumGroup.Get("/stats", h.GetForumStats)
	forumGroup.Get("/posts", h.ListPosts)
	forumGroup.Post("/posts", h.CreatePost)
	forumGroup.Get("/posts/:id", h.GetPost)
	forumGroup.Put("/posts/:id", h.UpdatePost)
	forumGroup.Delete("/posts/:id", h.DeletePost)
	forumGroup.Post("/posts/:id/like", h.ToggleLike)
	forumGroup.Post("/posts/:id/reply", h.AddReply)
	forumGroup.Delete("/posts/:id/reply/:replyId", h.DeleteReply)

	// Admin routes
	adminGroup := api.Group("/admin", auth, middleware.AdminOnly)
	adminGroup.Get("/users", adm.GetUsers)
	adminGroup.Get("/users/:id", adm.GetUser)
	adminGroup.Put("/users/:id", adm.UpdateUser)
	adminGroup.Get("/achievements", adm.GetAchievements)
	adminGroup.Put("/achievements", adm.ReplaceAchievements)
	adminGroup.Post("/achievements/reload", adm.ReloadAchievements)
	adminGroup.Post("/sweep", adm.ManualSweep)

	return h
}
