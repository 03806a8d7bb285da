package sqlite

import (
	"context"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type homeRepo struct {
	db dbtx
}

func (r *homeRepo) ActiveCountdown(ctx context.Context, now int64) (*repository.DealCountdown, error) {
	var (
		c      repository.DealCountdown
		active int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, end_time, is_active, created_at FROM deal_countdowns
         WHERE is_active = 1 AND end_time > ? ORDER BY end_time ASC LIMIT 1`, now).
		Scan(&c.ID, &c.Title, &c.EndTime, &active, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	c.IsActive = active == 1
	return &c, nil
}

func (r *homeRepo) SaveCountdown(ctx context.Context, c *repository.DealCountdown) (*repository.DealCountdown, error) {
	if c.ID > 0 {
		res, err := r.db.ExecContext(ctx, `UPDATE deal_countdowns SET title = ?, end_time = ?, is_active = ? WHERE id = ?`,
			c.Title, c.EndTime, boolToInt(c.IsActive), c.ID)
		if err := requireAffected(res, err); err != nil {
			return nil, err
		}
		return c, nil
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO deal_countdowns(title, end_time, is_active, created_at) VALUES(?, ?, ?, ?)`,
		c.Title, c.EndTime, boolToInt(c.IsActive), c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.ID, err = res.LastInsertId()
	return c, err
}

func (r *homeRepo) ListMainPage(ctx context.Context) ([]repository.MainPageProduct, error) {
	query, args, err := builder.
		Select("m.id", "m.product_id", "m.section", "m.sort", "m.created_at").
		Columns(qualifiedProductColumns("p")...).
		From("main_page_products m").
		Join("products p ON p.id = m.product_id").
		Where("p.is_active = 1").
		OrderBy("m.section", "m.sort", "m.id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []repository.MainPageProduct
	for rows.Next() {
		var (
			m    repository.MainPageProduct
			scan productScan
		)
		dest := append([]any{&m.ID, &m.ProductID, &m.Section, &m.Sort, &m.CreatedAt}, scan.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if m.Product, err = scan.product(); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// SetSection 用 productIDs 的顺序覆盖推荐位内容。
func (r *homeRepo) SetSection(ctx context.Context, section string, productIDs []int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM main_page_products WHERE section = ?`, section); err != nil {
		return err
	}
	now := nowUnix()
	for i, id := range productIDs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO main_page_products(product_id, section, sort, created_at) VALUES(?, ?, ?, ?)
             ON CONFLICT(product_id, section) DO NOTHING`, id, section, i, now); err != nil {
			return err
		}
	}
	return nil
}
