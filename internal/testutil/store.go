package testutil

import (
	"fmt"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

// NewSQLiteStore returns a store over a private in-memory SQLite database.
func NewSQLiteStore(t *testing.T) *repository.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", models.NewID())
	db, err := database.Open(sqlite.Open(dsn))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	store := repository.NewGormStore(db, config.StoreSQLite)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
