package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"pare/config"
	"pare/database"
	"pare/handlers"
	"pare/logger"
	"pare/middleware"
	"pare/services"
	"pare/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", "err", err)
	}

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile, JSON: cfg.IsProduction()}); err != nil {
		logger.Fatal("failed to initialise logger", "err", err)
	}

	// Validate critical environment variables
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}
	if cfg.IsProduction() && cfg.CORSOrigins == "http://localhost:3000" {
		logger.Warn("CORS_ORIGINS not properly configured for production")
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("invalid timezone", "err", err)
	}

	db, err := database.Open(database.Options{
		Driver:  cfg.DBDriver,
		DSN:     cfg.DatabaseDSN(),
		Verbose: !cfg.IsProduction(),
	})
	if err != nil {
		logger.Fatal("failed to open database", "err", err)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		logger.Fatal("failed to run migrations", "err", err)
	}

	ctx := context.Background()
	catalog := services.NewCatalogService(database.NewAchievementStore(db))
	if err := catalog.EnsureSeeded(ctx); err != nil {
		logger.Fatal("failed to load achievement catalog", "err", err)
	}

	events := services.NewEvents(64)
	modules := services.NewModuleService(db, catalog, events, loc)

	sweep := services.NewCheckInSweep(modules, cfg.SweepAt)
	if cfg.SweepEnabled {
		if err := sweep.Start(); err != nil {
			logger.Fatal("failed to start check-in sweep", "err", err)
		}
		defer sweep.Stop()
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: utils.ErrorHandler(cfg.IsProduction()),
		BodyLimit:    1 * 1024 * 1024,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	handlers.Setup(app, handlers.Deps{
		DB:        db,
		Modules:   modules,
		Catalog:   catalog,
		Events:    events,
		Sweep:     sweep,
		JWTSecret: cfg.JWTSecret,
		JWTTTL:    cfg.JWTExpiresIn,
	}, handlers.Limits{
		General: middleware.RateLimitConfig{Max: cfg.RateLimitMax, Window: cfg.RateLimitWindow},
		Auth:    middleware.RateLimitConfig{Max: cfg.AuthRateLimitMax, Window: cfg.AuthRateLimitWindow},
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	}()

	logger.Info("HTTP server starting",
		"port", cfg.Port,
		"env", cfg.AppEnv,
		"driver", cfg.DBDriver,
		"timezone", loc.String(),
		"sweep", cfg.SweepEnabled)

	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Error("HTTP server stopped", "err", err)
	}
}
