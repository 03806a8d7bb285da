// 文件路径: internal/service/chat.go
// 模块说明: 客服会话：登录用户与访客发起会话、双方收发消息、后台回复与关闭。
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/creamcroissant/vibemall/internal/repository"
)

const (
	maxChatAttachments    = 5
	maxChatAttachmentSize = 10 << 20
	chatMessagePage       = 100
)

// ChatActor 标识调用方：后台、登录用户或持有 AccessKey 的访客。
type ChatActor struct {
	UserID    int64
	AccessKey string
	Admin     bool
}

func (a ChatActor) sender() string {
	if a.Admin {
		return repository.SenderAdmin
	}
	return repository.SenderUser
}

// ChatInput 是一条待发送的消息。
type ChatInput struct {
	Message     string                      `json:"message"`
	Attachments []repository.ChatAttachment `json:"attachments"`
}

// GuestChat 是访客开启会话的结果，AccessKey 只在此返回一次。
type GuestChat struct {
	Thread    *repository.ChatThread `json:"thread"`
	AccessKey string                 `json:"access_key"`
}

// ChatService 管理客服会话。
type ChatService interface {
	Open(ctx context.Context, userID int64) (*repository.ChatThread, error)
	OpenGuest(ctx context.Context, name, email string) (*GuestChat, error)
	Thread(ctx context.Context, actor ChatActor, threadID int64) (*repository.ChatThread, error)
	Send(ctx context.Context, actor ChatActor, threadID int64, input ChatInput) (*repository.ChatMessage, error)
	Messages(ctx context.Context, actor ChatActor, threadID, afterID int64) ([]repository.ChatMessage, error)
	ListThreads(ctx context.Context, status string, page int) ([]repository.ChatThread, Page, error)
	SetStatus(ctx context.Context, threadID int64, status string) error
}

type chatService struct {
	store repository.Store
	now   func() time.Time
}

// NewChatService 组装客服会话服务。
func NewChatService(store repository.Store) ChatService {
	return &chatService{store: store, now: time.Now}
}

var errChatNotConfigured = errors.New("chat service not configured / 客服服务未配置")

// Open 返回用户当前未关闭的会话，没有则新建。
func (s *chatService) Open(ctx context.Context, userID int64) (*repository.ChatThread, error) {
	if s == nil || s.store == nil {
		return nil, errChatNotConfigured
	}
	if userID <= 0 {
		return nil, ErrUnauthorized
	}
	var thread *repository.ChatThread
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		thread, err = tx.Chats().FindOpenThreadForUser(ctx, userID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		now := s.now().Unix()
		created, err := tx.Chats().CreateThread(ctx, &repository.ChatThread{
			UserID:    int64Ptr(userID),
			AccessKey: uuid.NewString(),
			Status:    repository.ChatOpen,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}
		thread, err = tx.Chats().FindThread(ctx, created.ID)
		return err
	})
	return thread, err
}

// OpenGuest 为未登录访客新建会话。
func (s *chatService) OpenGuest(ctx context.Context, name, email string) (*GuestChat, error) {
	if s == nil || s.store == nil {
		return nil, errChatNotConfigured
	}
	name = sanitizeText(name)
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email are required / 姓名和邮箱不能为空", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email / 邮箱格式无效", ErrValidation)
	}
	now := s.now().Unix()
	thread, err := s.store.Chats().CreateThread(ctx, &repository.ChatThread{
		GuestName:  name,
		GuestEmail: email,
		AccessKey:  uuid.NewString(),
		Status:     repository.ChatOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	return &GuestChat{Thread: thread, AccessKey: thread.AccessKey}, nil
}

func (s *chatService) Thread(ctx context.Context, actor ChatActor, threadID int64) (*repository.ChatThread, error) {
	if s == nil || s.store == nil {
		return nil, errChatNotConfigured
	}
	return resolveThread(ctx, s.store, actor, threadID)
}

// resolveThread 访客按 AccessKey 定位会话；用户只能访问自己的会话，别人的按不存在处理。
func resolveThread(ctx context.Context, store repository.Store, actor ChatActor, threadID int64) (*repository.ChatThread, error) {
	switch {
	case actor.Admin:
		thread, err := store.Chats().FindThread(ctx, threadID)
		return thread, mapNotFound(err)
	case actor.UserID > 0:
		thread, err := store.Chats().FindThread(ctx, threadID)
		if err != nil {
			return nil, mapNotFound(err)
		}
		if thread.UserID == nil || *thread.UserID != actor.UserID {
			return nil, ErrNotFound
		}
		return thread, nil
	case actor.AccessKey != "":
		thread, err := store.Chats().FindThreadByKey(ctx, actor.AccessKey)
		if err != nil {
			return nil, mapNotFound(err)
		}
		if thread.UserID != nil {
			return nil, ErrNotFound
		}
		return thread, nil
	}
	return nil, ErrUnauthorized
}

// Send 写入一条消息；文本与附件不能同时为空，已关闭的会话只有后台能回复。
func (s *chatService) Send(ctx context.Context, actor ChatActor, threadID int64, input ChatInput) (*repository.ChatMessage, error) {
	if s == nil || s.store == nil {
		return nil, errChatNotConfigured
	}
	text := sanitizeText(input.Message)
	attachments, err := chatAttachments(input.Attachments)
	if err != nil {
		return nil, err
	}
	if text == "" && len(attachments) == 0 {
		return nil, fmt.Errorf("%w: message or attachment required / 消息和附件不能同时为空", ErrValidation)
	}

	var msg *repository.ChatMessage
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		thread, err := resolveThread(ctx, tx, actor, threadID)
		if err != nil {
			return err
		}
		if thread.Status == repository.ChatClosed && !actor.Admin {
			return ErrChatClosed
		}
		now := s.now()
		msg, err = tx.Chats().AddMessage(ctx, &repository.ChatMessage{
			ThreadID:    thread.ID,
			SenderType:  actor.sender(),
			Message:     text,
			CreatedAt:   now.Unix(),
			Attachments: attachments,
		})
		if err != nil {
			return err
		}
		if actor.Admin && thread.UserID != nil {
			return tx.Notifications().Create(ctx, &repository.Notification{
				UserID:    *thread.UserID,
				Type:      repository.NotifyChatReply,
				Title:     "Support replied",
				Message:   chatPreview(text),
				Link:      "/chat",
				CreatedAt: now.Unix(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Messages 返回 afterID 之后的消息，并把对方发来的消息标记为已读。
func (s *chatService) Messages(ctx context.Context, actor ChatActor, threadID, afterID int64) ([]repository.ChatMessage, error) {
	if s == nil || s.store == nil {
		return nil, errChatNotConfigured
	}
	var list []repository.ChatMessage
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		thread, err := resolveThread(ctx, tx, actor, threadID)
		if err != nil {
			return err
		}
		other := repository.SenderAdmin
		if actor.Admin {
			other = repository.SenderUser
		}
		if _, err := tx.Chats().MarkRead(ctx, thread.ID, other); err != nil {
			return err
		}
		list, err = tx.Chats().ListMessages(ctx, thread.ID, max(afterID, 0), chatMessagePage)
		return err
	})
	return list, err
}

// ListThreads 后台按最近消息排序列出会话，未读数统计用户发来的消息。
func (s *chatService) ListThreads(ctx context.Context, status string, page int) ([]repository.ChatThread, Page, error) {
	if s == nil || s.store == nil {
		return nil, Page{}, errChatNotConfigured
	}
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" && status != repository.ChatOpen && status != repository.ChatClosed {
		return nil, Page{}, fmt.Errorf("%w: unknown chat status / 会话状态无效", ErrValidation)
	}
	p := newPage(page, 20)
	list, total, err := s.store.Chats().ListThreads(ctx, repository.ChatThreadFilter{
		Status:     status,
		UnreadFrom: repository.SenderUser,
		Limit:      p.Size,
		Offset:     p.Offset(),
	})
	if err != nil {
		return nil, Page{}, err
	}
	return list, p.withTotal(total), nil
}

func (s *chatService) SetStatus(ctx context.Context, threadID int64, status string) error {
	if s == nil || s.store == nil {
		return errChatNotConfigured
	}
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != repository.ChatOpen && status != repository.ChatClosed {
		return fmt.Errorf("%w: unknown chat status / 会话状态无效", ErrValidation)
	}
	return mapNotFound(s.store.Chats().SetStatus(ctx, threadID, status, s.now().Unix()))
}

func chatAttachments(raw []repository.ChatAttachment) ([]repository.ChatAttachment, error) {
	if len(raw) > maxChatAttachments {
		return nil, fmt.Errorf("%w: at most %d attachments / 附件最多 %d 个", ErrValidation, maxChatAttachments, maxChatAttachments)
	}
	out := make([]repository.ChatAttachment, 0, len(raw))
	for _, a := range raw {
		a.URL = strings.TrimSpace(a.URL)
		if a.URL == "" {
			return nil, fmt.Errorf("%w: attachment url required / 附件地址不能为空", ErrValidation)
		}
		if a.SizeBytes < 0 || a.SizeBytes > maxChatAttachmentSize {
			return nil, fmt.Errorf("%w: attachment too large / 附件过大", ErrValidation)
		}
		a.OriginalName = strings.TrimSpace(a.OriginalName)
		if a.OriginalName == "" {
			a.OriginalName = path.Base(a.URL)
		}
		a.ContentType = strings.TrimSpace(a.ContentType)
		a.ID, a.MessageID = 0, 0
		out = append(out, a)
	}
	return out, nil
}

func chatPreview(text string) string {
	if text == "" {
		return "You have a new attachment from support."
	}
	runes := []rune(text)
	if len(runes) > 80 {
		return string(runes[:80]) + "..."
	}
	return text
}
