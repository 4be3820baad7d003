package services

import (
	"context"
	"sync/atomic"

	"pare/achievement"
	"pare/database"
	"pare/logger"
)

// CatalogService holds the current achievement catalog snapshot. Readers get
// an immutable *achievement.Catalog; a reload or reseed swaps the pointer.
type CatalogService struct {
	store   *database.AchievementStore
	current atomic.Pointer[achievement.Catalog]
}

func NewCatalogService(store *database.AchievementStore) *CatalogService {
	return &CatalogService{store: store}
}

// Snapshot returns the catalog in effect. It is empty until the first load.
func (s *CatalogService) Snapshot() *achievement.Catalog {
	if c := s.current.Load(); c != nil {
		return c
	}
	return &achievement.Catalog{}
}

// Reload re-reads the catalog table.
func (s *CatalogService) Reload(ctx context.Context) error {
	c, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	s.current.Store(c)
	logger.Info("achievement catalog loaded", "achievements", c.Len())
	return nil
}

// Reseed validates defs, replaces the stored catalog and publishes it.
func (s *CatalogService) Reseed(ctx context.Context, defs []achievement.Definition) (*achievement.Catalog, error) {
	c, err := achievement.NewCatalog(defs)
	if err != nil {
		return nil, err
	}
	if err := s.store.ReplaceCatalog(ctx, c); err != nil {
		return nil, err
	}
	s.current.Store(c)
	logger.Info("achievement catalog reseeded", "achievements", c.Len())
	return c, nil
}

// EnsureSeeded loads the catalog and seeds the defaults when it is empty.
func (s *CatalogService) EnsureSeeded(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}
	if s.Snapshot().Len() > 0 {
		return nil
	}
	_, err := s.Reseed(ctx, achievement.Defaults())
	return err
}
