// Package persistencetest opens throwaway in-memory databases for
// repository and service tests.
package persistencetest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"podfed/internal/core"
	"podfed/internal/persistence"
)

// New returns a migrated sqlite database private to the test.
func New(t *testing.T) *persistence.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	db, err := persistence.Open(sqlite.Open(dsn))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		sqlDB.Close() //nolint:errcheck
	})

	require.NoError(t, db.AutoMigrate(core.Models()...))

	return persistence.NewDB(db)
}
