package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"gorm.io/gorm"

	"pare/achievement"
	"pare/config"
	"pare/database"
	"pare/logger"
	"pare/models"
	"pare/services"
)

type appContext struct {
	ctx context.Context
	cfg *config.Config
	db  *gorm.DB
}

var CLI struct {
	Driver string `help:"Database driver (postgres or sqlite). Defaults to DB_DRIVER."`
	DSN    string `name:"dsn" help:"Database connection string. Defaults to DATABASE_URL or the DB_* settings."`
	Debug  bool   `help:"Log every SQL statement."`

	Migrate          MigrateCmd          `cmd:"" help:"Run database migrations."`
	SeedAchievements SeedAchievementsCmd `cmd:"" help:"Replace the achievement catalog."`
	Sweep            SweepCmd            `cmd:"" help:"Check in every active module now."`
	SetPlan          SetPlanCmd          `cmd:"" help:"Change a user's plan."`
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(app *appContext) error {
	if err := database.RunMigrations(app.db); err != nil {
		return err
	}
	fmt.Println("✅ Migrations applied")
	return nil
}

type SeedAchievementsCmd struct {
	File string `help:"JSON file holding an array of achievements. The default catalog is used when omitted." type:"existingfile"`
}

func (c *SeedAchievementsCmd) Run(app *appContext) error {
	defs := achievement.Defaults()
	if c.File != "" {
		raw, err := os.ReadFile(c.File)
		if err != nil {
			return err
		}
		defs = nil
		if err := json.Unmarshal(raw, &defs); err != nil {
			return fmt.Errorf("parse %s: %w", c.File, err)
		}
	}

	catalog := services.NewCatalogService(database.NewAchievementStore(app.db))
	seeded, err := catalog.Reseed(app.ctx, defs)
	if err != nil {
		return err
	}

	for _, d := range seeded.Definitions() {
		fmt.Printf("  %-16s %4d days  %5d pts  %s\n", d.ID, d.Requirement, d.Points, d.Type)
	}
	fmt.Printf("✅ Seeded %d achievements. Running servers pick them up on restart or POST /api/admin/achievements/reload\n", seeded.Len())
	return nil
}

type SweepCmd struct{}

func (c *SweepCmd) Run(app *appContext) error {
	loc, err := app.cfg.Location()
	if err != nil {
		return err
	}

	catalog := services.NewCatalogService(database.NewAchievementStore(app.db))
	if err := catalog.Reload(app.ctx); err != nil {
		return err
	}
	modules := services.NewModuleService(app.db, catalog, nil, loc)

	report, err := services.NewCheckInSweep(modules, app.cfg.SweepAt).RunOnce(app.ctx)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Swept %d modules: %d credited, %d achievements unlocked, %d failed\n",
		report.Modules, report.Credited, report.Achievements, report.Failed)
	return nil
}

type SetPlanCmd struct {
	Email string `arg:"" help:"Account email."`
	Plan  string `arg:"" help:"free, premium or elite." enum:"free,premium,elite"`
}

func (c *SetPlanCmd) Run(app *appContext) error {
	users := database.NewUserStore(app.db)
	user, err := users.ByEmail(app.ctx, c.Email)
	if err != nil {
		return fmt.Errorf("user %s: %w", c.Email, err)
	}

	plan, _ := models.ParsePlan(c.Plan)
	user.SetPlan(plan, time.Now().UTC())
	if err := users.Save(app.ctx, user); err != nil {
		return err
	}

	expires := "never"
	if user.PlanExpiresAt != nil {
		expires = user.PlanExpiresAt.Format(time.RFC3339)
	}
	fmt.Printf("✅ %s is now on %s (expires %s)\n", user.Email, user.Plan, expires)
	return nil
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("pare-admin"),
		kong.Description("Operator tools for the pare backend"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if CLI.Driver != "" {
		cfg.DBDriver = CLI.Driver
	}
	if CLI.DSN != "" {
		cfg.DSN = CLI.DSN
	}

	level := cfg.LogLevel
	if CLI.Debug {
		level = "debug"
	}
	if err := logger.Init(logger.Config{Level: level, File: cfg.LogFile}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	db, err := database.Open(database.Options{Driver: cfg.DBDriver, DSN: cfg.DatabaseDSN(), Verbose: CLI.Debug})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close(db)

	err = kctx.Run(&appContext{ctx: context.Background(), cfg: cfg, db: db})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
