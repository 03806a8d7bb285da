package main

import (
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creamcroissant/vibemall/internal/repository"
	"github.com/creamcroissant/vibemall/internal/service"
	"github.com/creamcroissant/vibemall/internal/support/hash"
)

type userCreateInput struct {
	Username string
	Email    string
	Password string
	Admin    bool
}

// runUserCreate 直接写库创建用户与资料；--admin 创建的账号归入 ADMIN 分组。
func runUserCreate(ctx context.Context, store *storeHandle, input userCreateInput, now time.Time) (*repository.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	username := strings.TrimSpace(input.Username)
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}
	if _, err := store.Users().FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email %s already registered", email)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hasher, err := hash.NewBcryptHasher(store.bcryptCost)
	if err != nil {
		return nil, err
	}
	hashed, err := hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	segment := repository.SegmentNew
	if input.Admin {
		segment = repository.SegmentAdmin
	}
	var created *repository.User
	err = store.InTx(ctx, func(tx repository.Store) error {
		user, err := tx.Users().Create(ctx, &repository.User{
			Username:     username,
			Email:        email,
			PasswordHash: hashed,
			IsStaff:      input.Admin,
			IsActive:     true,
			CreatedAt:    now.Unix(),
			UpdatedAt:    now.Unix(),
		})
		if err != nil {
			return fmt.Errorf("create user failed: %w", err)
		}
		created = user
		return tx.Profiles().Create(ctx, &repository.UserProfile{
			UserID:          user.ID,
			TotalSpent:      decimal.Zero,
			CustomerSegment: segment,
			CreatedAt:       now.Unix(),
			UpdatedAt:       now.Unix(),
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// runUserResetPassword 更新密码并吊销该用户全部刷新令牌。
func runUserResetPassword(ctx context.Context, store *storeHandle, email, password string, now time.Time) error {
	user, err := store.Users().FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return fmt.Errorf("user not found: %w", err)
	}
	hasher, err := hash.NewBcryptHasher(store.bcryptCost)
	if err != nil {
		return err
	}
	hashed, err := hasher.Hash(password)
	if err != nil {
		return err
	}
	return store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().UpdatePassword(ctx, user.ID, hashed); err != nil {
			return fmt.Errorf("save user failed: %w", err)
		}
		return tx.RefreshTokens().RevokeAllForUser(ctx, user.ID, now.Unix())
	})
}

func runUserBlock(ctx context.Context, store *storeHandle, email string, blocked bool) error {
	user, err := store.Users().FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return fmt.Errorf("find user failed: %w", err)
	}
	return service.NewCustomerService(store, nil).SetBlocked(ctx, 0, user.ID, blocked)
}

// runBackup 用 VACUUM INTO 生成一致快照，可选 gzip 压缩，返回最终文件路径。
func runBackup(ctx context.Context, db *sql.DB, output string, compress bool, now time.Time) (string, error) {
	target, raw, err := resolveBackupTarget(output, compress, now)
	if err != nil {
		return "", err
	}
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", raw); err != nil {
		return "", fmt.Errorf("sqlite vacuum into: %w", err)
	}
	if compress {
		defer os.Remove(raw)
		if err := compressFile(raw, target); err != nil {
			return "", err
		}
	}
	return target, nil
}

// runRestore 先备份当前库，再用备份文件（支持 .gz）覆盖；返回预备份路径。
func runRestore(backupPath, dbPath string, now time.Time) (string, error) {
	if _, err := os.Stat(backupPath); err != nil {
		return "", fmt.Errorf("backup file not found: %w", err)
	}

	var saved string
	if _, err := os.Stat(dbPath); err == nil {
		saved = dbPath + ".pre_restore_" + now.Format("20060102_150405")
		if err := copyFile(dbPath, saved); err != nil {
			return "", fmt.Errorf("failed to backup current db: %w", err)
		}
	}

	source := backupPath
	if strings.HasSuffix(backupPath, ".gz") {
		tempSource := dbPath + ".restoring"
		if err := decompressFile(backupPath, tempSource); err != nil {
			return saved, fmt.Errorf("decompress failed: %w", err)
		}
		defer os.Remove(tempSource)
		source = tempSource
	}

	if err := copyFile(source, dbPath); err != nil {
		return saved, fmt.Errorf("restore failed: %w", err)
	}
	// 旧的 WAL 文件会覆盖恢复的数据
	for _, suffix := range []string{"-wal", "-shm"} {
		os.Remove(dbPath + suffix)
	}
	return saved, nil
}

// File utils
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}

func decompressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	gr, err := gzip.NewReader(in)
	if err != nil {
		return err
	}
	defer gr.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, gr); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
