package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/creamcroissant/vibemall/internal/repository"
)

// refreshTokenRepo stores hashed refresh tokens.
type refreshTokenRepo struct {
	db dbtx
}

func (r *refreshTokenRepo) Create(ctx context.Context, t *repository.RefreshToken) error {
	if t == nil || t.UserID == 0 || t.TokenHash == "" {
		return fmt.Errorf("userID 和 refresh token 不能为空 / user and token hash are required")
	}
	const stmt = `INSERT INTO refresh_tokens(user_id, token_hash, ip, user_agent, expires_at, created_at) VALUES(?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, stmt, t.UserID, t.TokenHash, t.IP, t.UserAgent, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return err
	}
	t.ID, err = res.LastInsertId()
	return err
}

func (r *refreshTokenRepo) FindByHash(ctx context.Context, hash string) (*repository.RefreshToken, error) {
	const query = `SELECT id, user_id, token_hash, ip, user_agent, expires_at, revoked_at, created_at FROM refresh_tokens WHERE token_hash = ?`
	var (
		t       repository.RefreshToken
		revoked sql.NullInt64
	)
	if err := r.db.QueryRowContext(ctx, query, hash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.IP, &t.UserAgent, &t.ExpiresAt, &revoked, &t.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	t.RevokedAt = nullableIntPtr(revoked)
	return &t, nil
}

func (r *refreshTokenRepo) Revoke(ctx context.Context, hash string, at int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`, at, hash)
	return err
}

func (r *refreshTokenRepo) RevokeAllForUser(ctx context.Context, userID int64, at int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`, at, userID)
	return err
}

func (r *refreshTokenRepo) DeleteExpired(ctx context.Context, before int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < ? OR revoked_at < ?`, before, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
