// Package admin serves operator endpoints. Every route requires an admin
// token.
package admin

import (
	"gorm.io/gorm"

	"pare/database"
	"pare/services"
)

type Handler struct {
	users   *database.UserStore
	catalog *services.CatalogService
	sweep   *services.CheckInSweep
}

func New(db *gorm.DB, catalog *services.CatalogService, sweep *services.CheckInSweep) *Handler {
	return &Handler{
		users:   database.NewUserStore(db),
		catalog: catalog,
		sweep:   sweep,
	}
}
