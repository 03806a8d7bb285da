package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type profileRepo struct {
	db dbtx
}

func (r *profileRepo) Create(ctx context.Context, p *repository.UserProfile) error {
	const stmt = `INSERT INTO user_profiles(user_id, phone, country_code, mobile_number, is_blocked, total_spent, customer_segment, created_at, updated_at)
                  VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, stmt,
		p.UserID, p.Phone, p.CountryCode, p.MobileNumber, boolToInt(p.IsBlocked), p.TotalSpent.String(), p.CustomerSegment, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	return err
}

func (r *profileRepo) FindByUserID(ctx context.Context, userID int64) (*repository.UserProfile, error) {
	const query = `SELECT user_id, phone, country_code, mobile_number, is_blocked, total_spent, customer_segment, last_activity, created_at, updated_at
                   FROM user_profiles WHERE user_id = ?`
	var (
		p       repository.UserProfile
		blocked int
		lastAct sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Phone, &p.CountryCode, &p.MobileNumber, &blocked, &p.TotalSpent, &p.CustomerSegment, &lastAct, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	p.IsBlocked = blocked == 1
	p.LastActivity = nullableIntPtr(lastAct)
	return &p, nil
}

func (r *profileRepo) Update(ctx context.Context, p *repository.UserProfile) error {
	const stmt = `UPDATE user_profiles SET phone = ?, country_code = ?, mobile_number = ?, customer_segment = ?, updated_at = ? WHERE user_id = ?`
	res, err := r.db.ExecContext(ctx, stmt, p.Phone, p.CountryCode, p.MobileNumber, p.CustomerSegment, p.UpdatedAt, p.UserID)
	return requireAffected(res, err)
}

func (r *profileRepo) SetBlocked(ctx context.Context, userID int64, blocked bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE user_profiles SET is_blocked = ?, updated_at = ? WHERE user_id = ?`,
		boolToInt(blocked), time.Now().Unix(), userID)
	return requireAffected(res, err)
}

// AddTotalSpent 在 Go 侧做十进制加法，避免 SQLite 浮点累加误差。
func (r *profileRepo) AddTotalSpent(ctx context.Context, userID int64, amount decimal.Decimal) error {
	var current decimal.Decimal
	if err := r.db.QueryRowContext(ctx, `SELECT total_spent FROM user_profiles WHERE user_id = ?`, userID).Scan(&current); err != nil {
		return notFound(err)
	}
	_, err := r.db.ExecContext(ctx, `UPDATE user_profiles SET total_spent = ?, updated_at = ? WHERE user_id = ?`,
		current.Add(amount).StringFixed(2), time.Now().Unix(), userID)
	return err
}

func (r *profileRepo) TouchActivity(ctx context.Context, userID int64, at int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE user_profiles SET last_activity = ? WHERE user_id = ?`, at, userID)
	return err
}

func (r *profileRepo) MarkStaffAsAdmin(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE user_profiles SET customer_segment = 'ADMIN', updated_at = ?
        WHERE customer_segment <> 'ADMIN' AND user_id IN (SELECT id FROM users WHERE is_staff = 1)`, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RefreshSegments 重新计算非 ADMIN 客户的分群。
func (r *profileRepo) RefreshSegments(ctx context.Context, vipSpent decimal.Decimal, vipDelivered int64) (int64, error) {
	const stmt = `UPDATE user_profiles SET customer_segment = CASE
            WHEN CAST(total_spent AS REAL) >= ? OR d.delivered >= ? THEN 'VIP'
            WHEN d.delivered >= 1 THEN 'REGULAR'
            ELSE 'NEW' END,
        updated_at = ?
        FROM (SELECT u.id AS uid, (SELECT COUNT(*) FROM orders o WHERE o.user_id = u.id AND o.order_status = 'DELIVERED') AS delivered FROM users u) AS d
        WHERE d.uid = user_profiles.user_id AND user_profiles.customer_segment <> 'ADMIN'`
	threshold, _ := vipSpent.Float64()
	res, err := r.db.ExecContext(ctx, stmt, threshold, vipDelivered, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
