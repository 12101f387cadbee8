// Package dbtest provides migrated throwaway stores for tests.
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Aadithya-J/code_nest/services/editor-service/internal/db"
)

// NewSQLite returns an in-memory sqlite store with foreign keys enforced and
// all migrations applied. A single connection keeps the database alive for the
// duration of the test.
func NewSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), db.Config())
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}
