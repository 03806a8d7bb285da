package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type chatRepo struct {
	db dbtx
}

func chatThreadSelect(unreadFrom string) sq.SelectBuilder {
	unread := sq.Expr("0")
	if unreadFrom != "" {
		unread = sq.Expr("(SELECT COUNT(*) FROM chat_messages m WHERE m.thread_id = t.id AND m.is_read = 0 AND m.sender_type = ?)", unreadFrom)
	}
	return builder.Select("t.id", "t.user_id", "t.guest_name", "t.guest_email", "t.access_key", "t.status", "t.last_message_at",
		"t.created_at", "t.updated_at", "COALESCE(u.username, '')", "TRIM(COALESCE(u.first_name, '') || ' ' || COALESCE(u.last_name, ''))").
		Column(unread).
		From("chat_threads t").
		LeftJoin("users u ON u.id = t.user_id")
}

func (r *chatRepo) CreateThread(ctx context.Context, t *repository.ChatThread) (*repository.ChatThread, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_threads(user_id, guest_name, guest_email, access_key, status, created_at, updated_at)
         VALUES(?, ?, ?, ?, ?, ?, ?)`,
		nullableInt(t.UserID), t.GuestName, t.GuestEmail, t.AccessKey, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert chat thread: %w", err)
	}
	t.ID, err = res.LastInsertId()
	return t, err
}

func (r *chatRepo) FindThread(ctx context.Context, id int64) (*repository.ChatThread, error) {
	return r.findOne(ctx, sq.Eq{"t.id": id})
}

func (r *chatRepo) FindThreadByKey(ctx context.Context, key string) (*repository.ChatThread, error) {
	return r.findOne(ctx, sq.Eq{"t.access_key": key})
}

// FindOpenThreadForUser 返回用户最近的未关闭会话。
func (r *chatRepo) FindOpenThreadForUser(ctx context.Context, userID int64) (*repository.ChatThread, error) {
	return r.findOne(ctx, sq.Eq{"t.user_id": userID, "t.status": repository.ChatOpen})
}

func (r *chatRepo) findOne(ctx context.Context, where sq.Sqlizer) (*repository.ChatThread, error) {
	query, args, err := chatThreadSelect("").Where(where).OrderBy("t.id DESC").Limit(1).ToSql()
	if err != nil {
		return nil, err
	}
	t, err := scanChatThread(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// ListThreads 按最近消息时间倒序列出会话。
func (r *chatRepo) ListThreads(ctx context.Context, filter repository.ChatThreadFilter) ([]repository.ChatThread, int64, error) {
	where := sq.And{}
	if filter.UserID != nil {
		where = append(where, sq.Eq{"t.user_id": *filter.UserID})
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"t.status": filter.Status})
	}

	countQuery, countArgs, err := builder.Select("COUNT(*)").From("chat_threads t").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := chatThreadSelect(filter.UnreadFrom).Where(where).
		OrderBy("COALESCE(t.last_message_at, t.created_at) DESC", "t.id DESC").
		Limit(clampLimit(filter.Limit, 20)).Offset(uint64(max(filter.Offset, 0))).ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []repository.ChatThread{}
	for rows.Next() {
		t, err := scanChatThread(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *t)
	}
	return list, total, rows.Err()
}

func (r *chatRepo) SetStatus(ctx context.Context, id int64, status string, at int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE chat_threads SET status = ?, updated_at = ? WHERE id = ?`, status, at, id)
	return requireAffected(res, err)
}

// AddMessage 写入消息与附件，并刷新会话的最近消息时间。
func (r *chatRepo) AddMessage(ctx context.Context, m *repository.ChatMessage) (*repository.ChatMessage, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_messages(thread_id, sender_type, message, is_read, created_at) VALUES(?, ?, ?, ?, ?)`,
		m.ThreadID, m.SenderType, m.Message, boolToInt(m.IsRead), m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert chat message: %w", err)
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	for i := range m.Attachments {
		a := &m.Attachments[i]
		a.MessageID = m.ID
		a.CreatedAt = m.CreatedAt
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO chat_attachments(message_id, url, original_name, content_type, size_bytes, created_at) VALUES(?, ?, ?, ?, ?, ?)`,
			a.MessageID, a.URL, a.OriginalName, a.ContentType, a.SizeBytes, a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert chat attachment: %w", err)
		}
		if a.ID, err = res.LastInsertId(); err != nil {
			return nil, err
		}
	}
	if m.Attachments == nil {
		m.Attachments = []repository.ChatAttachment{}
	}
	res, err = r.db.ExecContext(ctx, `UPDATE chat_threads SET last_message_at = ?, updated_at = ? WHERE id = ?`, m.CreatedAt, m.CreatedAt, m.ThreadID)
	if err := requireAffected(res, err); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMessages 返回 afterID 之后的消息，按时间正序。
func (r *chatRepo) ListMessages(ctx context.Context, threadID, afterID int64, limit int) ([]repository.ChatMessage, error) {
	query, args, err := builder.Select("id", "thread_id", "sender_type", "message", "is_read", "created_at").
		From("chat_messages").
		Where(sq.Eq{"thread_id": threadID}).
		Where(sq.Gt{"id": afterID}).
		OrderBy("id").
		Limit(clampLimit(limit, 100)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []repository.ChatMessage{}
	index := map[int64]int{}
	for rows.Next() {
		var (
			m    repository.ChatMessage
			read int
		)
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderType, &m.Message, &read, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.IsRead = read == 1
		m.Attachments = []repository.ChatAttachment{}
		index[m.ID] = len(list)
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	if len(list) == 0 {
		return list, nil
	}

	ids := make([]int64, 0, len(list))
	for _, m := range list {
		ids = append(ids, m.ID)
	}
	query, args, err = builder.Select("id", "message_id", "url", "original_name", "content_type", "size_bytes", "created_at").
		From("chat_attachments").
		Where(sq.Eq{"message_id": ids}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	attRows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer attRows.Close()
	for attRows.Next() {
		var a repository.ChatAttachment
		if err := attRows.Scan(&a.ID, &a.MessageID, &a.URL, &a.OriginalName, &a.ContentType, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, err
		}
		i := index[a.MessageID]
		list[i].Attachments = append(list[i].Attachments, a)
	}
	return list, attRows.Err()
}

func (r *chatRepo) MarkRead(ctx context.Context, threadID int64, sender string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE chat_messages SET is_read = 1 WHERE thread_id = ? AND sender_type = ? AND is_read = 0`, threadID, sender)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanChatThread(row rowScanner) (*repository.ChatThread, error) {
	var (
		t           repository.ChatThread
		userID      sql.NullInt64
		lastMessage sql.NullInt64
	)
	if err := row.Scan(&t.ID, &userID, &t.GuestName, &t.GuestEmail, &t.AccessKey, &t.Status, &lastMessage,
		&t.CreatedAt, &t.UpdatedAt, &t.Username, &t.FullName, &t.Unread); err != nil {
		return nil, err
	}
	t.UserID = nullableIntPtr(userID)
	t.LastMessageAt = nullableIntPtr(lastMessage)
	return &t, nil
}
