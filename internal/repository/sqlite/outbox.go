package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type outboxRepo struct {
	db dbtx
}

// Insert adds a new message to the outbox.
func (r *outboxRepo) Insert(ctx context.Context, msg *repository.OutboxMessage) error {
	status := msg.Status
	if status == "" {
		status = repository.OutboxPending
	}
	query, args, err := builder.Insert("outbox").
		Columns("message_id", "topic", "aggregate_id", "payload", "status", "attempts", "last_error", "next_attempt_at", "created_at").
		Values(msg.MessageID, msg.Topic, msg.AggregateID, string(msg.Payload), status, msg.Attempts, msg.LastError, msg.NextAttemptAt, msg.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to insert outbox message: %w", err)
	}
	msg.ID, err = res.LastInsertId()
	msg.Status = status
	return err
}

// ListDue retrieves pending messages whose next attempt is due.
func (r *outboxRepo) ListDue(ctx context.Context, now int64, limit int) ([]repository.OutboxMessage, error) {
	query, args, err := builder.Select("id", "message_id", "topic", "aggregate_id", "payload", "status", "attempts", "last_error",
		"next_attempt_at", "published_at", "created_at").
		From("outbox").
		Where(sq.Eq{"status": repository.OutboxPending}).
		Where(sq.LtOrEq{"next_attempt_at": now}).
		OrderBy("next_attempt_at ASC", "id ASC").
		Limit(clampLimit(limit, 100)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []repository.OutboxMessage
	for rows.Next() {
		var (
			msg       repository.OutboxMessage
			payload   string
			published sql.NullInt64
		)
		if err := rows.Scan(&msg.ID, &msg.MessageID, &msg.Topic, &msg.AggregateID, &payload, &msg.Status, &msg.Attempts,
			&msg.LastError, &msg.NextAttemptAt, &published, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		msg.Payload = []byte(payload)
		msg.PublishedAt = nullableIntPtr(published)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *outboxRepo) MarkPublished(ctx context.Context, id int64, at int64) error {
	query, args, err := builder.Update("outbox").
		Set("status", repository.OutboxPublished).
		Set("published_at", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	return requireAffected(res, err)
}

// MarkFailed records the attempt and schedules the next retry.
func (r *outboxRepo) MarkFailed(ctx context.Context, id int64, attempts int, nextAttemptAt int64, lastErr string) error {
	query, args, err := builder.Update("outbox").
		Set("attempts", attempts).
		Set("last_error", lastErr).
		Set("next_attempt_at", nextAttemptAt).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	return requireAffected(res, err)
}

func (r *outboxRepo) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox WHERE status = 'PENDING'`).Scan(&n)
	return n, err
}
