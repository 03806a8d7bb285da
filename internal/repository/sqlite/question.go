package sqlite

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type questionRepo struct {
	db dbtx
}

func questionSelect() sq.SelectBuilder {
	return builder.Select("q.id", "q.product_id", "q.user_id", "q.question", "q.answer", "q.answered_by", "q.is_answered",
		"q.is_approved", "q.answered_at", "q.created_at", "COALESCE(u.username, '')", "p.name").
		From("questions q").
		Join("products p ON p.id = q.product_id").
		LeftJoin("users u ON u.id = q.user_id")
}

func (r *questionRepo) Create(ctx context.Context, q *repository.Question) (*repository.Question, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO questions(product_id, user_id, question, is_approved, created_at) VALUES(?, ?, ?, ?, ?)`,
		q.ProductID, nullableInt(q.UserID), q.Question, boolToInt(q.IsApproved), q.CreatedAt)
	if err != nil {
		return nil, err
	}
	q.ID, err = res.LastInsertId()
	return q, err
}

func (r *questionRepo) FindByID(ctx context.Context, id int64) (*repository.Question, error) {
	query, args, err := questionSelect().Where(sq.Eq{"q.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	q, err := scanQuestion(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return q, nil
}

func (r *questionRepo) List(ctx context.Context, filter repository.QuestionFilter) ([]repository.Question, int64, error) {
	where := sq.And{}
	if filter.ProductID != nil {
		where = append(where, sq.Eq{"q.product_id": *filter.ProductID})
	}
	if filter.Approved != nil {
		where = append(where, sq.Eq{"q.is_approved": boolToInt(*filter.Approved)})
	}
	if filter.Answered != nil {
		where = append(where, sq.Eq{"q.is_answered": boolToInt(*filter.Answered)})
	}

	countQuery, countArgs, err := builder.Select("COUNT(*)").From("questions q").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := questionSelect().Where(where).OrderBy("q.created_at DESC", "q.id DESC").
		Limit(clampLimit(filter.Limit, 20)).Offset(uint64(max(filter.Offset, 0))).ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []repository.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *q)
	}
	return list, total, rows.Err()
}

func (r *questionRepo) Answer(ctx context.Context, id int64, answer string, by int64, at int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE questions SET answer = ?, answered_by = ?, answered_at = ?, is_answered = 1 WHERE id = ?`, answer, by, at, id)
	return requireAffected(res, err)
}

func (r *questionRepo) SetApproved(ctx context.Context, id int64, approved bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE questions SET is_approved = ? WHERE id = ?`, boolToInt(approved), id)
	return requireAffected(res, err)
}

func (r *questionRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	return requireAffected(res, err)
}

func scanQuestion(row rowScanner) (*repository.Question, error) {
	var (
		q                  repository.Question
		userID, by, at     sql.NullInt64
		answered, approved int
	)
	if err := row.Scan(&q.ID, &q.ProductID, &userID, &q.Question, &q.Answer, &by, &answered, &approved, &at, &q.CreatedAt,
		&q.AskedBy, &q.ProductName); err != nil {
		return nil, err
	}
	q.UserID = nullableIntPtr(userID)
	q.AnsweredBy = nullableIntPtr(by)
	q.AnsweredAt = nullableIntPtr(at)
	q.IsAnswered = answered == 1
	q.IsApproved = approved == 1
	return &q, nil
}
