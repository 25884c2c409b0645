package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/medconnecthq/medconnect/internal/database"
)

// MustOpenTestDB opens an in-memory SQLite database for tests with the full
// schema applied. The connection is closed automatically via t.Cleanup.
func MustOpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Config{Driver: "sqlite"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
