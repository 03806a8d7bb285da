// 文件路径: internal/repository/sqlite/report.go
// 模块说明: 看板聚合查询。营收统计未取消的订单。
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type reportRepo struct {
	db dbtx
}

func (r *reportRepo) Totals(ctx context.Context) (repository.DashboardTotals, error) {
	var (
		t       repository.DashboardTotals
		revenue sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, `SELECT
            (SELECT SUM(CAST(total_amount AS REAL)) FROM orders WHERE order_status <> 'CANCELLED'),
            (SELECT COUNT(*) FROM orders),
            (SELECT COUNT(*) FROM users WHERE is_staff = 0),
            (SELECT COUNT(*) FROM products)`).
		Scan(&revenue, &t.Orders, &t.Customers, &t.Products)
	if err != nil {
		return t, err
	}
	t.Revenue = roundMoney(revenue)
	return t, nil
}

func (r *reportRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return r.countGrouped(ctx, `SELECT order_status, COUNT(*) FROM orders GROUP BY order_status`)
}

func (r *reportRepo) CountByApproval(ctx context.Context) (map[string]int64, error) {
	return r.countGrouped(ctx, `SELECT approval_status, COUNT(*) FROM orders GROUP BY approval_status`)
}

func (r *reportRepo) countGrouped(ctx context.Context, query string) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			key string
			n   int64
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

func (r *reportRepo) CountSuspicious(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE is_suspicious = 1 AND approval_status = 'PENDING_APPROVAL'`).Scan(&n)
	return n, err
}

func (r *reportRepo) RevenueBetween(ctx context.Context, from, to int64) (decimal.Decimal, error) {
	var revenue sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(CAST(total_amount AS REAL)) FROM orders WHERE order_status <> 'CANCELLED' AND created_at >= ? AND created_at < ?`,
		from, to).Scan(&revenue)
	if err != nil {
		return decimal.Zero, err
	}
	return roundMoney(revenue), nil
}

// DailyRevenue 按 UTC 日期分组，缺失的日期补 0。
func (r *reportRepo) DailyRevenue(ctx context.Context, from, to int64) ([]repository.DailyRevenue, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT strftime('%Y-%m-%d', created_at, 'unixepoch') AS day, SUM(CAST(total_amount AS REAL)), COUNT(*)
         FROM orders WHERE order_status <> 'CANCELLED' AND created_at >= ? AND created_at < ?
         GROUP BY day ORDER BY day`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDay := make(map[string]repository.DailyRevenue)
	for rows.Next() {
		var (
			d       repository.DailyRevenue
			revenue sql.NullFloat64
		)
		if err := rows.Scan(&d.Day, &revenue, &d.Orders); err != nil {
			return nil, err
		}
		d.Revenue = roundMoney(revenue)
		byDay[d.Day] = d
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []repository.DailyRevenue
	for day := time.Unix(from, 0).UTC().Truncate(24 * time.Hour); day.Unix() < to; day = day.AddDate(0, 0, 1) {
		key := day.Format(time.DateOnly)
		d, ok := byDay[key]
		if !ok {
			d = repository.DailyRevenue{Day: key, Revenue: decimal.Zero}
		}
		out = append(out, d)
	}
	return out, nil
}

func roundMoney(v sql.NullFloat64) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v.Float64).Round(2)
}
