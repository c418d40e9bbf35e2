// Package testutil provides a migrated throwaway database for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"fad-monitoring-backend/internal/database"
	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/pkg/utils"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB opens a migrated SQLite database in a temp dir that is removed with the test.
// A single connection serializes writers so transactions behave like row locks.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := database.Open(sqlite.Open(dsn), nil)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with a bcrypt hash of password
func CreateUser(t *testing.T, db *gorm.DB, username, password, role, status string) *models.User {
	t.Helper()

	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{Username: username, PasswordHash: hash, Role: role, Status: status}
	require.NoError(t, db.Create(user).Error)
	return user
}
