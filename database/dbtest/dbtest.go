// Package dbtest opens throwaway migrated SQLite databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pare/database"
	"pare/models"
)

// New returns an isolated in-memory database with every migration applied.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_foreign_keys=1", name, uuid.NewString()[:8])

	db, err := database.Open(database.Options{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))

	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// User inserts a user on the given plan.
func User(t testing.TB, db *gorm.DB, email string, plan models.Plan) *models.User {
	t.Helper()

	u := &models.User{Name: "Test " + email, Email: email, Password: "x", Plan: plan, IsActive: true}
	require.NoError(t, db.Create(u).Error)
	return u
}
