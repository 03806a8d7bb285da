// 文件路径: internal/migrations/runner.go
// 模块说明: goose 迁移入口。goose 的方言与文件系统是全局状态，这里用互斥锁串行化。
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

const dir = "sqlite"

var mu sync.Mutex

func run(fn func() error) error {
	mu.Lock()
	defer mu.Unlock()
	goose.SetBaseFS(SQLite)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return fn()
}

// Up migrates the SQLite schema to the latest version.
func Up(ctx context.Context, db *sql.DB) error {
	return run(func() error { return goose.UpContext(ctx, db, dir) })
}

// UpTo migrates up to and including version.
func UpTo(ctx context.Context, db *sql.DB, version int64) error {
	return run(func() error { return goose.UpToContext(ctx, db, dir, version) })
}

// Down rolls back a single migration.
func Down(ctx context.Context, db *sql.DB) error {
	return run(func() error { return goose.DownContext(ctx, db, dir) })
}

// Status prints migration status through the goose logger.
func Status(ctx context.Context, db *sql.DB) error {
	return run(func() error { return goose.StatusContext(ctx, db, dir) })
}

// Version returns the current schema version.
func Version(ctx context.Context, db *sql.DB) (int64, error) {
	var v int64
	err := run(func() error {
		var err error
		v, err = goose.GetDBVersionContext(ctx, db)
		return err
	})
	return v, err
}
