package sqlite

import (
	"context"
	"database/sql"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type addressRepo struct {
	db dbtx
}

const addressColumns = `id, user_id, full_name, mobile, line1, line2, city, state, pincode, country, type, is_default, created_at, updated_at`

func (r *addressRepo) ListByUser(ctx context.Context, userID int64) ([]repository.Address, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+addressColumns+` FROM addresses WHERE user_id = ? ORDER BY is_default DESC, created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []repository.Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

func (r *addressRepo) FindByID(ctx context.Context, id int64) (*repository.Address, error) {
	a, err := scanAddress(r.db.QueryRowContext(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (r *addressRepo) Create(ctx context.Context, a *repository.Address) (*repository.Address, error) {
	const stmt = `INSERT INTO addresses(user_id, full_name, mobile, line1, line2, city, state, pincode, country, type, is_default, created_at, updated_at)
                  VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, stmt, a.UserID, a.FullName, a.Mobile, a.Line1, a.Line2, a.City, a.State, a.Pincode, a.Country, a.Type,
		boolToInt(a.IsDefault), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.ID, err = res.LastInsertId()
	return a, err
}

func (r *addressRepo) Update(ctx context.Context, a *repository.Address) error {
	const stmt = `UPDATE addresses SET full_name = ?, mobile = ?, line1 = ?, line2 = ?, city = ?, state = ?, pincode = ?, country = ?, type = ?,
                  is_default = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, stmt, a.FullName, a.Mobile, a.Line1, a.Line2, a.City, a.State, a.Pincode, a.Country, a.Type,
		boolToInt(a.IsDefault), a.UpdatedAt, a.ID)
	return requireAffected(res, err)
}

func (r *addressRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM addresses WHERE id = ?`, id)
	return requireAffected(res, err)
}

func (r *addressRepo) ClearDefault(ctx context.Context, userID int64, exceptID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE addresses SET is_default = 0 WHERE user_id = ? AND id <> ? AND is_default = 1`, userID, exceptID)
	return err
}

func (r *addressRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM addresses WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAddress(row rowScanner) (*repository.Address, error) {
	var (
		a         repository.Address
		isDefault int
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.FullName, &a.Mobile, &a.Line1, &a.Line2, &a.City, &a.State, &a.Pincode, &a.Country, &a.Type,
		&isDefault, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.IsDefault = isDefault == 1
	return &a, nil
}

var _ rowScanner = (*sql.Row)(nil)
