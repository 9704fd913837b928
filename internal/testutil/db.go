// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"

	"hivley/internal/domain"
	"hivley/internal/domain/user"
	"hivley/internal/repository"
	"hivley/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory database closed at test cleanup.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, repository.InitSchema(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// CreateProfile inserts a profile with the given name and role.
func CreateProfile(t *testing.T, db *gorm.DB, name string, role domain.Role) user.Profile {
	t.Helper()
	p := user.Profile{
		Email:        name + "@psu.edu",
		FullName:     name,
		Role:         role,
		PasswordHash: "x",
	}
	require.NoError(t, repository.NewUserRepository(db).Create(context.Background(), &p))
	return p
}
