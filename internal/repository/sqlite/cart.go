package sqlite

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type cartRepo struct {
	db dbtx
}

func cartSelect() sq.SelectBuilder {
	return builder.
		Select("c.id", "c.user_id", "c.product_id", "c.quantity", "c.size", "c.color", "c.created_at", "c.updated_at").
		Columns(qualifiedProductColumns("p")...).
		From("cart_items c").
		Join("products p ON p.id = c.product_id")
}

func (r *cartRepo) ListByUser(ctx context.Context, userID int64) ([]repository.CartItem, error) {
	query, args, err := cartSelect().Where(sq.Eq{"c.user_id": userID}).OrderBy("c.created_at DESC", "c.id DESC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []repository.CartItem
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *item)
	}
	return list, rows.Err()
}

func (r *cartRepo) FindByID(ctx context.Context, id int64) (*repository.CartItem, error) {
	return r.findOne(ctx, sq.Eq{"c.id": id})
}

func (r *cartRepo) FindByUserProduct(ctx context.Context, userID, productID int64) (*repository.CartItem, error) {
	return r.findOne(ctx, sq.Eq{"c.user_id": userID, "c.product_id": productID})
}

func (r *cartRepo) findOne(ctx context.Context, where sq.Sqlizer) (*repository.CartItem, error) {
	query, args, err := cartSelect().Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}
	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return item, nil
}

// AddQuantity 插入购物车行；已存在时累加数量并覆盖尺码颜色。
func (r *cartRepo) AddQuantity(ctx context.Context, item *repository.CartItem) (*repository.CartItem, error) {
	const stmt = `INSERT INTO cart_items(user_id, product_id, quantity, size, color, created_at, updated_at)
                  VALUES(?, ?, ?, ?, ?, ?, ?)
                  ON CONFLICT(user_id, product_id) DO UPDATE SET
                      quantity = cart_items.quantity + excluded.quantity,
                      size = CASE WHEN excluded.size <> '' THEN excluded.size ELSE cart_items.size END,
                      color = CASE WHEN excluded.color <> '' THEN excluded.color ELSE cart_items.color END,
                      updated_at = excluded.updated_at`
	if _, err := r.db.ExecContext(ctx, stmt, item.UserID, item.ProductID, item.Quantity, item.Size, item.Color, item.CreatedAt, item.UpdatedAt); err != nil {
		return nil, err
	}
	return r.FindByUserProduct(ctx, item.UserID, item.ProductID)
}

func (r *cartRepo) SetQuantity(ctx context.Context, id int64, qty int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE cart_items SET quantity = ?, updated_at = ? WHERE id = ?`, qty, nowUnix(), id)
	return requireAffected(res, err)
}

func (r *cartRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ?`, id)
	return requireAffected(res, err)
}

func (r *cartRepo) ClearUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	return err
}

func scanCartItem(row rowScanner) (*repository.CartItem, error) {
	var (
		item repository.CartItem
		scan productScan
	)
	dest := append([]any{&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.Size, &item.Color, &item.CreatedAt, &item.UpdatedAt},
		scan.dest()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	p, err := scan.product()
	if err != nil {
		return nil, err
	}
	item.Product = p
	return &item, nil
}
