// Package sqlitetest opens migrated throwaway SQLite stores for tests.
package sqlitetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/bootstrap"
	"github.com/creamcroissant/vibemall/internal/migrations"
	"github.com/creamcroissant/vibemall/internal/repository/sqlite"
)

// New returns a Store backed by a fresh database under t.TempDir().
func New(t testing.TB) *sqlite.Store {
	t.Helper()
	db, err := bootstrap.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))
	return sqlite.NewStore(db)
}
