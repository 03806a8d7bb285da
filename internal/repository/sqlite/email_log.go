package sqlite

import (
	"context"
	"database/sql"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type emailLogRepo struct {
	db dbtx
}

func (r *emailLogRepo) Create(ctx context.Context, l *repository.EmailLog) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO email_logs(email_to, email_type, subject, order_id, sent_successfully, error_message, sent_at) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		l.EmailTo, l.EmailType, l.Subject, nullableInt(l.OrderID), boolToInt(l.SentSuccessfully), l.ErrorMessage, l.SentAt)
	if err != nil {
		return err
	}
	l.ID, err = res.LastInsertId()
	return err
}

func (r *emailLogRepo) List(ctx context.Context, limit, offset int) ([]repository.EmailLog, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_logs`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email_to, email_type, subject, order_id, sent_successfully, error_message, sent_at FROM email_logs
         ORDER BY sent_at DESC, id DESC LIMIT ? OFFSET ?`, clampLimit(limit, 50), max(offset, 0))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []repository.EmailLog
	for rows.Next() {
		var (
			l       repository.EmailLog
			orderID sql.NullInt64
			ok      int
		)
		if err := rows.Scan(&l.ID, &l.EmailTo, &l.EmailType, &l.Subject, &orderID, &ok, &l.ErrorMessage, &l.SentAt); err != nil {
			return nil, 0, err
		}
		l.OrderID = nullableIntPtr(orderID)
		l.SentSuccessfully = ok == 1
		list = append(list, l)
	}
	return list, total, rows.Err()
}
