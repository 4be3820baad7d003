// database/modules.go - Habit module persistence
package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pare/logger"
	"pare/models"
	"pare/streak"
)

// maxUpdateAttempts bounds the read-modify-write retries of Update.
const maxUpdateAttempts = 5

var errStaleVersion = errors.New("stale module version")

// ModuleStore persists habit modules. Every counter change goes through
// Update, which serialises writers per module with a version column.
type ModuleStore struct {
	db *gorm.DB
}

func NewModuleStore(db *gorm.DB) *ModuleStore {
	return &ModuleStore{db: db}
}

func orderedRelapses(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

// CreateWithinLimit inserts d unless the owner already has an active module
// of the same kind (ErrDuplicate) or limit active modules (ErrLimit).
func (s *ModuleStore) CreateWithinLimit(ctx context.Context, d *streak.Module, limit int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialise concurrent creates for the same owner.
		lock := tx
		if tx.Dialector.Name() == "postgres" {
			lock = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var owner models.User
		if err := lock.Select("id").First(&owner, d.OwnerID).Error; err != nil {
			return translate(err)
		}

		var sameKind int64
		if err := tx.Model(&models.Module{}).
			Where("user_id = ? AND habit_kind = ? AND is_active = ?", d.OwnerID, string(d.Kind), true).
			Count(&sameKind).Error; err != nil {
			return err
		}
		if sameKind > 0 {
			return fmt.Errorf("%w: active %s module", ErrDuplicate, d.Kind)
		}

		var active int64
		if err := tx.Model(&models.Module{}).
			Where("user_id = ? AND is_active = ?", d.OwnerID, true).
			Count(&active).Error; err != nil {
			return err
		}
		if active >= int64(limit) {
			return fmt.Errorf("%w: %d of %d active modules", ErrLimit, active, limit)
		}

		row := models.NewModuleRow(d)
		return translate(tx.Create(&row).Error)
	})
}

// Get loads a module owned by userID, active or not, with its ordered history.
func (s *ModuleStore) Get(ctx context.Context, id string, userID uint) (*models.Module, error) {
	var row models.Module
	err := s.db.WithContext(ctx).
		Preload("Relapses", orderedRelapses).
		Where("id = ? AND user_id = ?", id, userID).
		First(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

// ListActive returns the owner's active modules. byDayCount orders by
// progress, otherwise newest first.
func (s *ModuleStore) ListActive(ctx context.Context, userID uint, byDayCount bool) ([]models.Module, error) {
	order := "created_at DESC"
	if byDayCount {
		order = "day_count DESC, created_at DESC"
	}

	var rows []models.Module
	err := s.db.WithContext(ctx).
		Preload("Relapses", orderedRelapses).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order(order).
		Find(&rows).Error
	return rows, err
}

// Update applies mutate to the current state of an active module and writes
// the result if mutate reports a change. The write only succeeds when nobody
// else updated the module since it was read; otherwise the module is re-read
// and mutate runs again on the fresh state. New relapse history entries are
// inserted in the same transaction.
func (s *ModuleStore) Update(ctx context.Context, id string, userID uint, mutate func(m *streak.Module) bool) (*streak.Module, error) {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		var row models.Module
		err := s.db.WithContext(ctx).
			Preload("Relapses", orderedRelapses).
			Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).
			First(&row).Error
		if err != nil {
			return nil, translate(err)
		}

		m := row.Domain()
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("module %s: %w", id, err)
		}
		historyLen := len(m.Relapses)

		if !mutate(m) {
			return m, nil
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			next := row
			next.CopyCounters(m)

			res := tx.Model(&models.Module{}).
				Where("id = ? AND version = ?", row.ID, row.Version).
				Updates(map[string]interface{}{
					"day_count":      next.DayCount,
					"longest_streak": next.LongestStreak,
					"points":         next.Points,
					"level":          next.Level,
					"total_relapses": next.TotalRelapses,
					"last_check_in":  next.LastCheckIn,
					"is_active":      next.IsActive,
					"version":        row.Version + 1,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStaleVersion
			}

			if rows := models.RelapseRows(m, historyLen); len(rows) > 0 {
				if err := tx.Create(&rows).Error; err != nil {
					return err
				}
			}
			return nil
		})

		switch {
		case err == nil:
			return m, nil
		case errors.Is(err, errStaleVersion):
			logger.Debug("module version conflict, retrying", "module", id, "attempt", attempt)
			continue
		default:
			return nil, translate(err)
		}
	}

	return nil, fmt.Errorf("%w: module %s", ErrConflict, id)
}

// Deactivate soft deletes a module.
func (s *ModuleStore) Deactivate(ctx context.Context, id string, userID uint) error {
	res := s.db.WithContext(ctx).Model(&models.Module{}).
		Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).
		Updates(map[string]interface{}{
			"is_active": false,
			"version":   gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ModuleRef identifies a module for batch jobs.
type ModuleRef struct {
	ID     string
	UserID uint
}

// ActiveRefs pages through every active module ordered by id, starting after
// the given id.
func (s *ModuleStore) ActiveRefs(ctx context.Context, after string, limit int) ([]ModuleRef, error) {
	var refs []ModuleRef
	err := s.db.WithContext(ctx).Model(&models.Module{}).
		Select("id, user_id").
		Where("is_active = ? AND id > ?", true, after).
		Order("id ASC").
		Limit(limit).
		Scan(&refs).Error
	return refs, err
}

// TopModules returns each user's active module with the highest day count.
func (s *ModuleStore) TopModules(ctx context.Context, userIDs []uint) (map[uint]models.Module, error) {
	top := make(map[uint]models.Module, len(userIDs))
	if len(userIDs) == 0 {
		return top, nil
	}

	var rows []models.Module
	err := s.db.WithContext(ctx).
		Where("user_id IN ? AND is_active = ?", userIDs, true).
		Order("day_count DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		if _, seen := top[r.UserID]; !seen {
			top[r.UserID] = r
		}
	}
	return top, nil
}
