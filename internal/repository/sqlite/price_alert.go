package sqlite

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type priceAlertRepo struct {
	db dbtx
}

// Upsert 重新加入心愿单时重置提醒基准价。
func (r *priceAlertRepo) Upsert(ctx context.Context, a *repository.PriceAlert) (*repository.PriceAlert, error) {
	const stmt = `INSERT INTO price_alerts(user_id, product_id, original_price, target_price, is_active, notified, created_at, updated_at)
                  VALUES(?, ?, ?, ?, ?, 0, ?, ?)
                  ON CONFLICT(user_id, product_id) DO UPDATE SET
                      original_price = excluded.original_price,
                      target_price = excluded.target_price,
                      is_active = excluded.is_active,
                      notified = 0,
                      updated_at = excluded.updated_at
                  RETURNING id, notified, created_at`
	var notified int
	err := r.db.QueryRowContext(ctx, stmt, a.UserID, a.ProductID, a.OriginalPrice.String(), a.TargetPrice, boolToInt(a.IsActive), a.CreatedAt, a.UpdatedAt).
		Scan(&a.ID, &notified, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Notified = notified == 1
	return a, nil
}

// ListTriggered 按 id 顺序返回 afterID 之后已达到提醒条件、仍在心愿单中且尚未提醒过的活跃提醒。
// 价格以 TEXT 存储，这里按 REAL 粗筛，最终判断由调用方用 decimal 完成。
func (r *priceAlertRepo) ListTriggered(ctx context.Context, afterID int64, limit int) ([]repository.PriceAlertCandidate, error) {
	query, args, err := builder.
		Select("a.id", "a.user_id", "a.product_id", "a.original_price", "a.target_price", "a.is_active", "a.notified",
			"a.created_at", "a.updated_at", "p.name", "p.slug", "p.price", "u.email").
		From("price_alerts a").
		Join("products p ON p.id = a.product_id").
		Join("users u ON u.id = a.user_id").
		Join("wishlist_items w ON w.user_id = a.user_id AND w.product_id = a.product_id").
		Where("a.is_active = 1 AND a.notified = 0 AND p.is_active = 1").
		Where(sq.Gt{"a.id": afterID}).
		Where(sq.Or{
			sq.Expr("a.target_price IS NOT NULL AND CAST(p.price AS REAL) <= CAST(a.target_price AS REAL)"),
			sq.Expr("a.target_price IS NULL AND CAST(p.price AS REAL) < CAST(a.original_price AS REAL)"),
		}).
		OrderBy("a.id").
		Limit(clampLimit(limit, 100)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []repository.PriceAlertCandidate
	for rows.Next() {
		var (
			c                repository.PriceAlertCandidate
			active, notified int
		)
		if err := rows.Scan(&c.Alert.ID, &c.Alert.UserID, &c.Alert.ProductID, &c.Alert.OriginalPrice, &c.Alert.TargetPrice,
			&active, &notified, &c.Alert.CreatedAt, &c.Alert.UpdatedAt, &c.ProductName, &c.ProductSlug, &c.CurrentPrice, &c.Email); err != nil {
			return nil, err
		}
		c.Alert.IsActive = active == 1
		c.Alert.Notified = notified == 1
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *priceAlertRepo) MarkNotified(ctx context.Context, id int64, at int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE price_alerts SET notified = 1, updated_at = ? WHERE id = ?`, at, id)
	return requireAffected(res, err)
}

func (r *priceAlertRepo) FindByUserProduct(ctx context.Context, userID, productID int64) (*repository.PriceAlert, error) {
	var (
		a                repository.PriceAlert
		active, notified int
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id, product_id, original_price, target_price, is_active, notified, created_at, updated_at
                                      FROM price_alerts WHERE user_id = ? AND product_id = ?`, userID, productID).
		Scan(&a.ID, &a.UserID, &a.ProductID, &a.OriginalPrice, &a.TargetPrice, &active, &notified, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	a.IsActive = active == 1
	a.Notified = notified == 1
	return &a, nil
}
