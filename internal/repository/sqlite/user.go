// 文件路径: internal/repository/sqlite/user.go
// 模块说明: users 表与后台客户列表。
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/creamcroissant/vibemall/internal/repository"
)

// userRepo 负责 users 表的 SQLite 实现。
type userRepo struct {
	db dbtx
}

const userColumns = `id, username, email, password, first_name, last_name, is_staff, is_active, last_login_at, created_at, updated_at`

func (r *userRepo) Create(ctx context.Context, user *repository.User) (*repository.User, error) {
	const stmt = `INSERT INTO users(username, email, password, first_name, last_name, is_staff, is_active, created_at, updated_at)
                  VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, stmt,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		boolToInt(user.IsStaff),
		boolToInt(user.IsActive),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	user.ID = id
	return user, nil
}

func (r *userRepo) FindByID(ctx context.Context, id int64) (*repository.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (*repository.User, error) {
	// username 列是 NOCASE
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, strings.TrimSpace(username)))
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*repository.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, repository.ErrNotFound
	}
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? ORDER BY id LIMIT 1`, email))
}

func (r *userRepo) Update(ctx context.Context, user *repository.User) error {
	const stmt = `UPDATE users SET username = ?, email = ?, first_name = ?, last_name = ?, is_staff = ?, is_active = ?, updated_at = ?
                  WHERE id = ?`
	res, err := r.db.ExecContext(ctx, stmt,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		boolToInt(user.IsStaff),
		boolToInt(user.IsActive),
		user.UpdatedAt,
		user.ID,
	)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	return requireAffected(res, err)
}

func (r *userRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password = ? WHERE id = ?`, hash, id)
	return requireAffected(res, err)
}

func (r *userRepo) TouchLogin(ctx context.Context, id int64, at int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, at, id)
	return err
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE is_staff = 0`).Scan(&n)
	return n, err
}

func (r *userRepo) ListCustomers(ctx context.Context, filter repository.CustomerFilter) ([]repository.Customer, int64, error) {
	where := sq.And{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pat := likePattern(s)
		where = append(where, sq.Or{
			sq.Expr(`u.username LIKE ? ESCAPE '\'`, pat),
			sq.Expr(`u.email LIKE ? ESCAPE '\'`, pat),
			sq.Expr(`u.first_name LIKE ? ESCAPE '\'`, pat),
			sq.Expr(`p.mobile_number LIKE ? ESCAPE '\'`, pat),
		})
	}
	if filter.Segment != "" {
		where = append(where, sq.Eq{"p.customer_segment": filter.Segment})
	}
	if filter.Blocked != nil {
		where = append(where, sq.Eq{"p.is_blocked": boolToInt(*filter.Blocked)})
	}

	countQuery, countArgs, err := builder.Select("COUNT(*)").
		From("users u").
		LeftJoin("user_profiles p ON p.user_id = u.id").
		Where(where).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build customer count: %w", err)
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := builder.Select(
		"u.id", "u.username", "u.email", "u.password", "u.first_name", "u.last_name", "u.is_staff", "u.is_active",
		"u.last_login_at", "u.created_at", "u.updated_at",
		"COALESCE(p.phone, '')", "COALESCE(p.country_code, '')", "COALESCE(p.mobile_number, '')",
		"COALESCE(p.is_blocked, 0)", "COALESCE(p.total_spent, '0')", "COALESCE(p.customer_segment, 'NEW')", "p.last_activity",
		"(SELECT COUNT(*) FROM orders o WHERE o.user_id = u.id)",
		"(SELECT COUNT(*) FROM orders o WHERE o.user_id = u.id AND o.order_status = 'DELIVERED')",
	).
		From("users u").
		LeftJoin("user_profiles p ON p.user_id = u.id").
		Where(where).
		OrderBy("u.id DESC").
		Limit(clampLimit(filter.Limit, 20)).
		Offset(uint64(max(filter.Offset, 0))).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build customer list: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []repository.Customer
	for rows.Next() {
		var (
			c                  repository.Customer
			isStaff, isActive  int
			blocked            int
			lastLogin, lastAct sql.NullInt64
		)
		if err := rows.Scan(
			&c.ID, &c.Username, &c.Email, &c.PasswordHash, &c.FirstName, &c.LastName, &isStaff, &isActive,
			&lastLogin, &c.CreatedAt, &c.UpdatedAt,
			&c.Profile.Phone, &c.Profile.CountryCode, &c.Profile.MobileNumber,
			&blocked, &c.Profile.TotalSpent, &c.Profile.CustomerSegment, &lastAct,
			&c.OrderCount, &c.DeliveredCount,
		); err != nil {
			return nil, 0, err
		}
		c.IsStaff = isStaff == 1
		c.IsActive = isActive == 1
		c.LastLoginAt = nullableIntPtr(lastLogin)
		c.Profile.UserID = c.ID
		c.Profile.IsBlocked = blocked == 1
		c.Profile.LastActivity = nullableIntPtr(lastAct)
		list = append(list, c)
	}
	return list, total, rows.Err()
}

func scanUser(row *sql.Row) (*repository.User, error) {
	var (
		u                 repository.User
		isStaff, isActive int
		lastLogin         sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &isStaff, &isActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	u.IsStaff = isStaff == 1
	u.IsActive = isActive == 1
	u.LastLoginAt = nullableIntPtr(lastLogin)
	return &u, nil
}
