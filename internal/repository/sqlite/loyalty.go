package sqlite

import (
	"context"
	"database/sql"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type loyaltyRepo struct {
	db dbtx
}

func (r *loyaltyRepo) FindAccount(ctx context.Context, userID int64) (*repository.LoyaltyAccount, error) {
	var a repository.LoyaltyAccount
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, total_points, points_used, updated_at FROM loyalty_accounts WHERE user_id = ?`, userID).
		Scan(&a.UserID, &a.TotalPoints, &a.PointsUsed, &a.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *loyaltyRepo) Apply(ctx context.Context, userID int64, totalDelta, usedDelta int64, at int64) (*repository.LoyaltyAccount, error) {
	var a repository.LoyaltyAccount
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO loyalty_accounts(user_id, total_points, points_used, updated_at) VALUES(?, MAX(?, 0), MAX(?, 0), ?)
         ON CONFLICT(user_id) DO UPDATE SET
             total_points = MAX(loyalty_accounts.total_points + ?, 0),
             points_used = MAX(loyalty_accounts.points_used + ?, 0),
             updated_at = excluded.updated_at
         RETURNING user_id, total_points, points_used, updated_at`,
		userID, totalDelta, usedDelta, at, totalDelta, usedDelta).
		Scan(&a.UserID, &a.TotalPoints, &a.PointsUsed, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *loyaltyRepo) AddTransaction(ctx context.Context, t *repository.PointsTransaction) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO points_transactions(user_id, points, transaction_type, description, order_id, created_at) VALUES(?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Points, t.Type, t.Description, nullableInt(t.OrderID), t.CreatedAt)
	if err != nil {
		return err
	}
	t.ID, err = res.LastInsertId()
	return err
}

func (r *loyaltyRepo) ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]repository.PointsTransaction, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM points_transactions WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, points, transaction_type, description, order_id, created_at FROM points_transactions
         WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		userID, clampLimit(limit, 20), max(offset, 0))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []repository.PointsTransaction
	for rows.Next() {
		var (
			t       repository.PointsTransaction
			orderID sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Points, &t.Type, &t.Description, &orderID, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		t.OrderID = nullableIntPtr(orderID)
		list = append(list, t)
	}
	return list, total, rows.Err()
}

// RedeemedForOrder 返回订单上扣除的积分（正数）。
func (r *loyaltyRepo) RedeemedForOrder(ctx context.Context, orderID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(-SUM(points), 0) FROM points_transactions WHERE order_id = ? AND transaction_type = 'REDEEMED'`, orderID).Scan(&n)
	return n, err
}
