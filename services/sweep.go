package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"pare/logger"
)

const sweepPageSize = 200

var ErrSweepRunning = errors.New("check-in sweep already running")

// SweepReport summarises one sweep run.
type SweepReport struct {
	Modules      int `json:"modules"`
	Credited     int `json:"credited"`
	Achievements int `json:"achievements"`
	Failed       int `json:"failed"`
}

// CheckInSweep checks in every active module once a day so modules accrue
// days without a client check-in. It goes through ModuleService.CheckIn, so
// a module the owner already checked in today is left unchanged.
type CheckInSweep struct {
	modules   *ModuleService
	scheduler *gocron.Scheduler
	at        string

	mu      sync.Mutex
	running bool
}

// NewCheckInSweep schedules the sweep daily at at (HH:MM, UTC).
func NewCheckInSweep(modules *ModuleService, at string) *CheckInSweep {
	return &CheckInSweep{
		modules:   modules,
		scheduler: gocron.NewScheduler(time.UTC),
		at:        at,
	}
}

// Start registers the daily job and starts the scheduler without blocking.
func (s *CheckInSweep) Start() error {
	_, err := s.scheduler.Every(1).Day().At(s.at).Do(func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			logger.Error("check-in sweep failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule check-in sweep: %w", err)
	}

	s.scheduler.StartAsync()
	logger.Info("check-in sweep scheduled", "at", s.at)
	return nil
}

// Stop terminates the scheduler.
func (s *CheckInSweep) Stop() {
	s.scheduler.Stop()
}

// RunOnce checks in every active module now. A failing module is logged and
// skipped. Overlapping runs are refused.
func (s *CheckInSweep) RunOnce(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return report, ErrSweepRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	after := ""
	for {
		refs, err := s.modules.modules.ActiveRefs(ctx, after, sweepPageSize)
		if err != nil {
			return report, err
		}
		if len(refs) == 0 {
			break
		}

		for _, ref := range refs {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			report.Modules++
			res, err := s.modules.CheckIn(ctx, ref.ID, ref.UserID)
			if err != nil {
				report.Failed++
				logger.Warn("sweep check-in failed", "module", ref.ID, "err", err)
				continue
			}
			if res.DaysCredited > 0 {
				report.Credited++
			}
			report.Achievements += len(res.NewAchievements)
		}
		after = refs[len(refs)-1].ID
	}

	logger.Info("check-in sweep finished",
		"modules", report.Modules,
		"credited", report.Credited,
		"achievements", report.Achievements,
		"failed", report.Failed,
		"took", time.Since(start))
	return report, nil
}
