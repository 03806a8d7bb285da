package sqlite

import (
	"context"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type productImageRepo struct {
	db dbtx
}

func (r *productImageRepo) ListByProduct(ctx context.Context, productID int64) ([]repository.ProductImage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, url, sort, is_active, created_at FROM product_images WHERE product_id = ? AND is_active = 1 ORDER BY sort, id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []repository.ProductImage
	for rows.Next() {
		var (
			img    repository.ProductImage
			active int
		)
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.Sort, &active, &img.CreatedAt); err != nil {
			return nil, err
		}
		img.IsActive = active == 1
		list = append(list, img)
	}
	return list, rows.Err()
}

// Replace 删除旧图片后按顺序写入新图片。需在事务中调用才是原子的。
func (r *productImageRepo) Replace(ctx context.Context, productID int64, images []repository.ProductImage) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM product_images WHERE product_id = ?`, productID); err != nil {
		return err
	}
	for i, img := range images {
		sort := img.Sort
		if sort == 0 {
			sort = i
		}
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO product_images(product_id, url, sort, is_active, created_at) VALUES(?, ?, ?, ?, ?)`,
			productID, img.URL, sort, boolToInt(img.IsActive), img.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}
