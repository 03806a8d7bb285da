package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/creamcroissant/vibemall/internal/notifier"
	"github.com/creamcroissant/vibemall/internal/repository"
)

// NotificationService 提供站内通知、后台提醒邮箱、发信日志与降价提醒扫描。
type NotificationService interface {
	List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]repository.Notification, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)

	AdminEmail(ctx context.Context) (*repository.AdminEmailSettings, error)
	SaveAdminEmail(ctx context.Context, email string, active bool) (*repository.AdminEmailSettings, error)
	EmailLogs(ctx context.Context, page int) ([]repository.EmailLog, Page, error)

	ScanPriceAlerts(ctx context.Context) (int, error)
}

type notificationService struct {
	store  repository.Store
	mailer *orderMailer
	now    func() time.Time
}

// NewNotificationService 组装通知服务。
func NewNotificationService(store repository.Store, mail notifier.Service, settings ShopSettings, logger *slog.Logger) NotificationService {
	return &notificationService{
		store:  store,
		mailer: newOrderMailer(mail, settings.Name, logger),
		now:    time.Now,
	}
}

func (s *notificationService) List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]repository.Notification, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("notification service not configured / 通知服务未配置")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := s.store.Notifications().ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []repository.Notification{}
	}
	return list, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, id int64) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("notification service not configured / 通知服务未配置")
	}
	return mapNotFound(s.store.Notifications().MarkRead(ctx, userID, id))
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	if s == nil || s.store == nil {
		return 0, fmt.Errorf("notification service not configured / 通知服务未配置")
	}
	return s.store.Notifications().MarkAllRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	if s == nil || s.store == nil {
		return 0, fmt.Errorf("notification service not configured / 通知服务未配置")
	}
	return s.store.Notifications().UnreadCount(ctx, userID)
}

// AdminEmail 未设置时返回未启用的空配置。
func (s *notificationService) AdminEmail(ctx context.Context) (*repository.AdminEmailSettings, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("notification service not configured / 通知服务未配置")
	}
	settings, err := s.store.AdminEmail().Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return &repository.AdminEmailSettings{}, nil
	}
	return settings, err
}

func (s *notificationService) SaveAdminEmail(ctx context.Context, email string, active bool) (*repository.AdminEmailSettings, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("notification service not configured / 通知服务未配置")
	}
	email = strings.TrimSpace(email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: invalid email / 邮箱格式无效", ErrValidation)
		}
	} else if active {
		return nil, fmt.Errorf("%w: admin email is required / 请填写提醒邮箱", ErrValidation)
	}
	settings := &repository.AdminEmailSettings{AdminEmail: email, IsActive: active, UpdatedAt: s.now().Unix()}
	if err := s.store.AdminEmail().Save(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *notificationService) EmailLogs(ctx context.Context, page int) ([]repository.EmailLog, Page, error) {
	if s == nil || s.store == nil {
		return nil, Page{}, fmt.Errorf("notification service not configured / 通知服务未配置")
	}
	p := newPage(page, 50)
	list, total, err := s.store.EmailLogs().List(ctx, p.Size, p.Offset())
	if err != nil {
		return nil, Page{}, err
	}
	if list == nil {
		list = []repository.EmailLog{}
	}
	return list, p.withTotal(total), nil
}

// priceAlertBatch 是每次扫描降价提醒的分页大小。
const priceAlertBatch = 100

// ScanPriceAlerts 当前价不高于目标价（无目标价时低于加入时价格）即提醒一次。
func (s *notificationService) ScanPriceAlerts(ctx context.Context) (int, error) {
	if s == nil || s.store == nil {
		return 0, fmt.Errorf("notification service not configured / 通知服务未配置")
	}
	var (
		sent   int
		mails  []notifier.EmailRequest
		cursor int64
	)
	defer func() { s.mailer.send(ctx, mails...) }()
	for {
		batch, err := s.store.PriceAlerts().ListTriggered(ctx, cursor, priceAlertBatch)
		if err != nil {
			return sent, err
		}
		for _, c := range batch {
			cursor = c.Alert.ID
			if !PriceDropped(c) {
				continue
			}
			if err := s.firePriceAlert(ctx, c); err != nil {
				return sent, err
			}
			mails = append(mails, s.mailer.priceDrop(c))
			sent++
		}
		if len(batch) < priceAlertBatch {
			return sent, nil
		}
	}
}

func (s *notificationService) firePriceAlert(ctx context.Context, c repository.PriceAlertCandidate) error {
	now := s.now()
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.PriceAlerts().MarkNotified(ctx, c.Alert.ID, now.Unix()); err != nil {
			return err
		}
		return tx.Notifications().Create(ctx, &repository.Notification{
			UserID:    c.Alert.UserID,
			Type:      repository.NotifyPriceDrop,
			Title:     "Price Drop Alert",
			Message:   fmt.Sprintf("%s is now %s (was %s).", c.ProductName, rupees(c.CurrentPrice), rupees(c.Alert.OriginalPrice)),
			Link:      fmt.Sprintf("/products/%d", c.Alert.ProductID),
			CreatedAt: now.Unix(),
		})
	})
	if err != nil {
		return fmt.Errorf("notify price alert %d: %w", c.Alert.ID, err)
	}
	return nil
}

// PriceDropped reports whether a candidate alert should fire.
func PriceDropped(c repository.PriceAlertCandidate) bool {
	if c.Alert.TargetPrice.Valid {
		return c.CurrentPrice.LessThanOrEqual(c.Alert.TargetPrice.Decimal)
	}
	return c.CurrentPrice.LessThan(c.Alert.OriginalPrice)
}
