package sqlite

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type wishlistRepo struct {
	db dbtx
}

func wishlistSelect() sq.SelectBuilder {
	return builder.
		Select("w.id", "w.user_id", "w.product_id", "w.created_at").
		Columns(qualifiedProductColumns("p")...).
		From("wishlist_items w").
		Join("products p ON p.id = w.product_id")
}

func (r *wishlistRepo) ListByUser(ctx context.Context, userID int64) ([]repository.WishlistItem, error) {
	query, args, err := wishlistSelect().Where(sq.Eq{"w.user_id": userID}).OrderBy("w.created_at DESC", "w.id DESC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []repository.WishlistItem
	for rows.Next() {
		item, err := scanWishlistItem(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *item)
	}
	return list, rows.Err()
}

func (r *wishlistRepo) FindByID(ctx context.Context, id int64) (*repository.WishlistItem, error) {
	query, args, err := wishlistSelect().Where(sq.Eq{"w.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	item, err := scanWishlistItem(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return item, nil
}

func (r *wishlistRepo) Add(ctx context.Context, userID, productID int64) (*repository.WishlistItem, bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO wishlist_items(user_id, product_id, created_at) VALUES(?, ?, ?) ON CONFLICT(user_id, product_id) DO NOTHING`,
		userID, productID, nowUnix())
	if err != nil {
		return nil, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	query, args, err := wishlistSelect().Where(sq.Eq{"w.user_id": userID, "w.product_id": productID}).ToSql()
	if err != nil {
		return nil, false, err
	}
	item, err := scanWishlistItem(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, false, notFound(err)
	}
	return item, n > 0, nil
}

func (r *wishlistRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM wishlist_items WHERE id = ?`, id)
	return requireAffected(res, err)
}

func (r *wishlistRepo) DeleteByUserProduct(ctx context.Context, userID, productID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM wishlist_items WHERE user_id = ? AND product_id = ?`, userID, productID)
	return err
}

func (r *wishlistRepo) Exists(ctx context.Context, userID, productID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wishlist_items WHERE user_id = ? AND product_id = ?`, userID, productID).Scan(&n)
	return n > 0, err
}

func scanWishlistItem(row rowScanner) (*repository.WishlistItem, error) {
	var (
		item repository.WishlistItem
		scan productScan
	)
	dest := append([]any{&item.ID, &item.UserID, &item.ProductID, &item.CreatedAt}, scan.dest()...)
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
