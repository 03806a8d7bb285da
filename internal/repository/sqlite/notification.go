package sqlite

import (
	"context"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type notificationRepo struct {
	db dbtx
}

func (r *notificationRepo) Create(ctx context.Context, n *repository.Notification) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications(user_id, notification_type, title, message, link, is_read, created_at) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		n.UserID, n.Type, n.Title, n.Message, n.Link, boolToInt(n.IsRead), n.CreatedAt)
	if err != nil {
		return err
	}
	n.ID, err = res.LastInsertId()
	return err
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]repository.Notification, error) {
	q := builder.Select("id", "user_id", "notification_type", "title", "message", "link", "is_read", "created_at").
		From("notifications").
		Where("user_id = ?", userID).
		OrderBy("created_at DESC", "id DESC").
		Limit(clampLimit(limit, 20))
	if unreadOnly {
		q = q.Where("is_read = 0")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []repository.Notification
	for rows.Next() {
		var (
			n    repository.Notification
			read int
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Link, &read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.IsRead = read == 1
		list = append(list, n)
	}
	return list, rows.Err()
}

// MarkRead 只允许标记属于该用户的通知。
func (r *notificationRepo) MarkRead(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	return requireAffected(res, err)
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepo) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`, userID).Scan(&n)
	return n, err
}
