package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/creamcroissant/vibemall/internal/bootstrap"
	"github.com/creamcroissant/vibemall/internal/repository"
	"github.com/creamcroissant/vibemall/internal/repository/sqlite"
	"github.com/creamcroissant/vibemall/internal/repository/sqlite/sqlitetest"
	"github.com/creamcroissant/vibemall/internal/service"
)

func newHandle(t *testing.T) *storeHandle {
	t.Helper()
	return &storeHandle{
		Store:      sqlitetest.New(t),
		settings:   service.DefaultShopSettings(),
		bcryptCost: bcrypt.MinCost,
	}
}

func TestUserCreateAndResetPassword(t *testing.T) {
	ctx := context.Background()
	store := newHandle(t)
	now := time.Now()

	admin, err := runUserCreate(ctx, store, userCreateInput{Email: " Ops@Example.com ", Password: "secret-1", Admin: true}, now)
	require.NoError(t, err)
	require.Equal(t, "ops", admin.Username)
	require.Equal(t, "ops@example.com", admin.Email)
	require.True(t, admin.IsStaff)

	profile, err := store.Profiles().FindByUserID(ctx, admin.ID)
	require.NoError(t, err)
	require.Equal(t, repository.SegmentAdmin, profile.CustomerSegment)

	_, err = runUserCreate(ctx, store, userCreateInput{Email: "ops@example.com", Password: "x"}, now)
	require.Error(t, err)
	_, err = runUserCreate(ctx, store, userCreateInput{Email: "nopass@example.com"}, now)
	require.Error(t, err)

	require.NoError(t, runUserResetPassword(ctx, store, "ops@example.com", "secret-2", now))
	user, err := store.Users().FindByID(ctx, admin.ID)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret-2")))
}

func TestUserBlock(t *testing.T) {
	ctx := context.Background()
	store := newHandle(t)
	customer, err := runUserCreate(ctx, store, userCreateInput{Email: "asha@example.com", Password: "pw"}, time.Now())
	require.NoError(t, err)

	require.NoError(t, runUserBlock(ctx, store, "asha@example.com", true))
	profile, err := store.Profiles().FindByUserID(ctx, customer.ID)
	require.NoError(t, err)
	require.True(t, profile.IsBlocked)

	require.NoError(t, runUserBlock(ctx, store, "asha@example.com", false))
	profile, err = store.Profiles().FindByUserID(ctx, customer.ID)
	require.NoError(t, err)
	require.False(t, profile.IsBlocked)

	_, err = runUserCreate(ctx, store, userCreateInput{Email: "staff@example.com", Password: "pw", Admin: true}, time.Now())
	require.NoError(t, err)
	require.ErrorIs(t, runUserBlock(ctx, store, "staff@example.com", true), service.ErrForbidden)
}

func TestBackupAndRestore(t *testing.T) {
	ctx := context.Background()
	source := sqlitetest.New(t)
	handle := &storeHandle{Store: source, bcryptCost: bcrypt.MinCost}
	_, err := runUserCreate(ctx, handle, userCreateInput{Email: "asha@example.com", Password: "pw"}, time.Now())
	require.NoError(t, err)

	dir := t.TempDir()
	now := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	target, err := runBackup(ctx, source.DB(), filepath.Join(dir, "snapshot.db.gz"), true, now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "snapshot.db.gz"), target)
	_, err = os.Stat(filepath.Join(dir, "snapshot.db"))
	require.True(t, os.IsNotExist(err), "uncompressed snapshot should be removed")

	dbPath := filepath.Join(dir, "restored", "vibemall.db")
	require.NoError(t, os.MkdirAll(filepath.Dir(dbPath), 0o755))
	require.NoError(t, os.WriteFile(dbPath, []byte("old"), 0o644))

	saved, err := runRestore(target, dbPath, now)
	require.NoError(t, err)
	require.Equal(t, dbPath+".pre_restore_20240301_103000", saved)
	old, err := os.ReadFile(saved)
	require.NoError(t, err)
	require.Equal(t, "old", string(old))

	db, err := bootstrap.OpenSQLite(dbPath)
	require.NoError(t, err)
	defer db.Close()
	user, err := sqlite.NewStore(db).Users().FindByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	require.Equal(t, "asha", user.Username)
}

func TestRestoreMissingFile(t *testing.T) {
	_, err := runRestore(filepath.Join(t.TempDir(), "missing.db"), filepath.Join(t.TempDir(), "x.db"), time.Now())
	require.Error(t, err)
}

func TestResolveBackupTarget(t *testing.T) {
	target, raw, err := resolveBackupTarget("/tmp/out.db.gz", true, time.Now())
	require.NoError(t, err)
	require.Equal(t, "/tmp/out.db.gz", target)
	require.Equal(t, "/tmp/out.db", raw)

	target, raw, err = resolveBackupTarget("/tmp/out.bak", true, time.Now())
	require.NoError(t, err)
	require.Equal(t, "/tmp/out.bak", target)
	require.Equal(t, "/tmp/out.bak.tmp", raw)

	target, raw, err = resolveBackupTarget("/tmp/out.db", false, time.Now())
	require.NoError(t, err)
	require.Equal(t, target, raw)
}

func TestSigningKeyLog(t *testing.T) {
	cases := []struct {
		source bootstrap.SecretSource
		msg    string
		label  string
	}{
		{bootstrap.SecretSourceConfig, "jwt signing key loaded", "config"},
		{bootstrap.SecretSourceSettings, "jwt signing key loaded", "settings"},
		{bootstrap.SecretSourceGenerated, "jwt signing key generated", "generated-and-persisted"},
		{bootstrap.SecretSource(""), "jwt signing key loaded", "unknown"},
	}
	for _, tc := range cases {
		msg, label := signingKeyLog(tc.source)
		require.Equal(t, tc.msg, msg)
		require.Equal(t, tc.label, label)
	}
}
