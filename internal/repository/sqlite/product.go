// 文件路径: internal/repository/sqlite/product.go
// 模块说明: 商品目录。前台搜索与后台列表的动态条件用 squirrel 拼装。
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type productRepo struct {
	db dbtx
}

var productColumns = []string{
	"id", "name", "slug", "sku", "description", "price", "old_price", "discount_percent", "sold", "stock", "category",
	"brand", "color", "size", "weight", "dimensions", "shipping_info", "care_info", "tags", "image_url",
	"is_top_deal", "is_active", "rating", "review_count", "created_at", "updated_at",
}

func productSelect() sq.SelectBuilder {
	return builder.Select(productColumns...).From("products")
}

func (r *productRepo) Create(ctx context.Context, p *repository.Product) (*repository.Product, error) {
	tags, err := encodeStringSlice(p.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode product tags: %w", err)
	}
	query, args, err := builder.Insert("products").
		Columns(productColumns[1:]...).
		Values(p.Name, p.Slug, p.SKU, p.Description, p.Price.String(), p.OldPrice, p.DiscountPercent, p.Sold, p.Stock, p.Category,
			p.Brand, p.Color, p.Size, p.Weight, p.Dimensions, p.ShippingInfo, p.CareInfo, tags, p.ImageURL,
			boolToInt(p.IsTopDeal), boolToInt(p.IsActive), p.Rating, p.ReviewCount, p.CreatedAt, p.UpdatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build product insert: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	p.ID, err = res.LastInsertId()
	return p, err
}

func (r *productRepo) Update(ctx context.Context, p *repository.Product) error {
	tags, err := encodeStringSlice(p.Tags)
	if err != nil {
		return fmt.Errorf("encode product tags: %w", err)
	}
	query, args, err := builder.Update("products").
		SetMap(map[string]any{
			"name":             p.Name,
			"slug":             p.Slug,
			"sku":              p.SKU,
			"description":      p.Description,
			"price":            p.Price.String(),
			"old_price":        p.OldPrice,
			"discount_percent": p.DiscountPercent,
			"stock":            p.Stock,
			"category":         p.Category,
			"brand":            p.Brand,
			"color":            p.Color,
			"size":             p.Size,
			"weight":           p.Weight,
			"dimensions":       p.Dimensions,
			"shipping_info":    p.ShippingInfo,
			"care_info":        p.CareInfo,
			"tags":             tags,
			"image_url":        p.ImageURL,
			"is_top_deal":      boolToInt(p.IsTopDeal),
			"is_active":        boolToInt(p.IsActive),
			"rating":           p.Rating,
			"updated_at":       p.UpdatedAt,
		}).
		Where(sq.Eq{"id": p.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build product update: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	return requireAffected(res, err)
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	return requireAffected(res, err)
}

func (r *productRepo) FindByID(ctx context.Context, id int64) (*repository.Product, error) {
	return r.findOne(ctx, sq.Eq{"id": id})
}

func (r *productRepo) FindBySlug(ctx context.Context, slug string) (*repository.Product, error) {
	return r.findOne(ctx, sq.Eq{"slug": slug})
}

func (r *productRepo) FindBySKU(ctx context.Context, sku string) (*repository.Product, error) {
	return r.findOne(ctx, sq.Eq{"sku": sku})
}

func (r *productRepo) findOne(ctx context.Context, where sq.Sqlizer) (*repository.Product, error) {
	query, args, err := productSelect().Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *productRepo) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE slug = ? AND id <> ?`, slug, excludeID).Scan(&n)
	return n > 0, err
}

// Search 返回满足条件的商品（按 id 倒序）及总数。
func (r *productRepo) Search(ctx context.Context, filter repository.ProductFilter) ([]repository.Product, int64, error) {
	where := productWhere(filter)

	countQuery, countArgs, err := builder.Select("COUNT(*)").From("products").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build product count: %w", err)
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := productSelect().
		Where(where).
		OrderBy("id DESC").
		Limit(clampLimit(filter.Limit, 16)).
		Offset(uint64(max(filter.Offset, 0))).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build product search: %w", err)
	}
	list, err := r.queryProducts(ctx, query, args...)
	return list, total, err
}

func productWhere(filter repository.ProductFilter) sq.And {
	where := sq.And{}
	if filter.ActiveOnly {
		where = append(where, sq.Eq{"is_active": 1})
	}
	if filter.Category != "" {
		where = append(where, sq.Eq{"category": filter.Category})
	}
	if filter.MinPrice != nil {
		v, _ := filter.MinPrice.Float64()
		where = append(where, sq.Expr("CAST(price AS REAL) >= ?", v))
	}
	if filter.MaxPrice != nil {
		v, _ := filter.MaxPrice.Float64()
		where = append(where, sq.Expr("CAST(price AS REAL) <= ?", v))
	}
	if filter.MinRating != nil {
		where = append(where, sq.GtOrEq{"rating": *filter.MinRating})
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pat := likePattern(q)
		where = append(where, sq.Or{
			sq.Expr(`name LIKE ? ESCAPE '\'`, pat),
			sq.Expr(`description LIKE ? ESCAPE '\'`, pat),
			sq.Expr(`brand LIKE ? ESCAPE '\'`, pat),
			sq.Expr(`sku LIKE ? ESCAPE '\'`, pat),
		})
	}
	return where
}

func (r *productRepo) TopByDiscount(ctx context.Context, limit int) ([]repository.Product, error) {
	return r.listActive(ctx, "discount_percent DESC, id DESC", limit)
}

func (r *productRepo) TopSelling(ctx context.Context, limit int) ([]repository.Product, error) {
	return r.listActive(ctx, "sold DESC, id DESC", limit)
}

func (r *productRepo) TopDeals(ctx context.Context, limit int) ([]repository.Product, error) {
	query, args, err := productSelect().
		Where(sq.Eq{"is_active": 1, "is_top_deal": 1}).
		OrderBy("id DESC").
		Limit(clampLimit(limit, 8)).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryProducts(ctx, query, args...)
}

func (r *productRepo) LowStock(ctx context.Context, threshold int64, limit int) ([]repository.Product, error) {
	query, args, err := productSelect().
		Where(sq.Eq{"is_active": 1}).
		Where(sq.LtOrEq{"stock": threshold}).
		OrderBy("stock ASC", "id DESC").
		Limit(clampLimit(limit, 10)).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryProducts(ctx, query, args...)
}

func (r *productRepo) listActive(ctx context.Context, orderBy string, limit int) ([]repository.Product, error) {
	query, args, err := productSelect().
		Where(sq.Eq{"is_active": 1}).
		OrderBy(orderBy).
		Limit(clampLimit(limit, 5)).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryProducts(ctx, query, args...)
}

func (r *productRepo) CountByCategory(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM products WHERE is_active = 1 GROUP BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			cat string
			n   int64
		)
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		counts[cat] = n
	}
	return counts, rows.Err()
}

func (r *productRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

func (r *productRepo) DecrementStock(ctx context.Context, id int64, qty int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET stock = stock - ?, sold = sold + ? WHERE id = ? AND stock >= ?`, qty, qty, id, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrInsufficientStock
	}
	return nil
}

func (r *productRepo) RestoreStock(ctx context.Context, id int64, qty int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE products SET stock = stock + ?, sold = MAX(sold - ?, 0) WHERE id = ?`, qty, qty, id)
	return err
}

func (r *productRepo) UpdateRating(ctx context.Context, id int64, rating float64, count int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET rating = ?, review_count = ? WHERE id = ?`, rating, count, id)
	return requireAffected(res, err)
}

func (r *productRepo) queryProducts(ctx context.Context, query string, args ...any) ([]repository.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []repository.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

func scanProduct(row rowScanner) (*repository.Product, error) {
	var scan productScan
	if err := row.Scan(scan.dest()...); err != nil {
		return nil, err
	}
	return scan.product()
}

// productScan 收集一行商品列，供联表查询在其它列之后追加。
type productScan struct {
	p        repository.Product
	tags     sql.NullString
	topDeal  int
	isActive int
}

func (s *productScan) dest() []any {
	p := &s.p
	return []any{
		&p.ID, &p.Name, &p.Slug, &p.SKU, &p.Description, &p.Price, &p.OldPrice, &p.DiscountPercent, &p.Sold, &p.Stock, &p.Category,
		&p.Brand, &p.Color, &p.Size, &p.Weight, &p.Dimensions, &p.ShippingInfo, &p.CareInfo, &s.tags, &p.ImageURL,
		&s.topDeal, &s.isActive, &p.Rating, &p.ReviewCount, &p.CreatedAt, &p.UpdatedAt,
	}
}

func (s *productScan) product() (*repository.Product, error) {
	decoded, err := decodeJSONSlice(s.tags)
	if err != nil {
		return nil, fmt.Errorf("decode product tags: %w", err)
	}
	p := s.p
	p.Tags = decoded
	p.IsTopDeal = s.topDeal == 1
	p.IsActive = s.isActive == 1
	return &p, nil
}

// qualifiedProductColumns 返回带表别名前缀的商品列。
func qualifiedProductColumns(alias string) []string {
	cols := make([]string, len(productColumns))
	for i, c := range productColumns {
		cols[i] = alias + "." + c
	}
	return cols
}
