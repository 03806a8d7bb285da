package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/creamcroissant/vibemall/internal/repository"
	"github.com/creamcroissant/vibemall/internal/service"
)

// PriceAlertJob 扫描心愿单降价提醒。
type PriceAlertJob struct {
	Notifications service.NotificationService
	Logger        *slog.Logger
}

// NewPriceAlertJob 构造降价提醒任务。
func NewPriceAlertJob(notifications service.NotificationService, logger *slog.Logger) *PriceAlertJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &PriceAlertJob{Notifications: notifications, Logger: logger}
}

func (j *PriceAlertJob) Name() string { return "wishlist.price_alerts" }

func (j *PriceAlertJob) Run(ctx context.Context) error {
	if j == nil || j.Notifications == nil {
		return fmt.Errorf("price alert job dependencies not configured / 降价提醒任务依赖未配置")
	}
	sent, err := j.Notifications.ScanPriceAlerts(ctx)
	if err != nil {
		return fmt.Errorf("price alert job: %w", err)
	}
	if sent > 0 {
		j.Logger.Info("price drop alerts sent", "count", sent)
	}
	return nil
}

// PaymentReconcileJob 把已送达但仍待付款的订单补记为已付款。
type PaymentReconcileJob struct {
	Orders service.OrderService
	Logger *slog.Logger
}

// NewPaymentReconcileJob 构造付款对账任务。
func NewPaymentReconcileJob(orders service.OrderService, logger *slog.Logger) *PaymentReconcileJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentReconcileJob{Orders: orders, Logger: logger}
}

func (j *PaymentReconcileJob) Name() string { return "orders.payment_reconcile" }

func (j *PaymentReconcileJob) Run(ctx context.Context) error {
	if j == nil || j.Orders == nil {
		return fmt.Errorf("payment reconcile job dependencies not configured / 付款对账任务依赖未配置")
	}
	fixed, err := j.Orders.ReconcileDeliveredPayments(ctx)
	if err != nil {
		return fmt.Errorf("payment reconcile job: %w", err)
	}
	if fixed > 0 {
		j.Logger.Info("delivered orders marked paid", "count", fixed)
	}
	return nil
}

// SegmentRefreshJob 重新计算客户分层。
type SegmentRefreshJob struct {
	Customers service.CustomerService
	Logger    *slog.Logger
}

// NewSegmentRefreshJob 构造客户分层任务。
func NewSegmentRefreshJob(customers service.CustomerService, logger *slog.Logger) *SegmentRefreshJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SegmentRefreshJob{Customers: customers, Logger: logger}
}

func (j *SegmentRefreshJob) Name() string { return "customers.segment_refresh" }

func (j *SegmentRefreshJob) Run(ctx context.Context) error {
	if j == nil || j.Customers == nil {
		return fmt.Errorf("segment refresh job dependencies not configured / 客户分层任务依赖未配置")
	}
	changed, err := j.Customers.RefreshSegments(ctx)
	if err != nil {
		return fmt.Errorf("segment refresh job: %w", err)
	}
	j.Logger.Debug("customer segments refreshed", "changed", changed)
	return nil
}

// TokenCleanupJob 删除过期的刷新令牌。
type TokenCleanupJob struct {
	Tokens repository.RefreshTokenRepository
	Logger *slog.Logger
	now    func() time.Time
}

// NewTokenCleanupJob 构造令牌清理任务。
func NewTokenCleanupJob(tokens repository.RefreshTokenRepository, logger *slog.Logger) *TokenCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenCleanupJob{Tokens: tokens, Logger: logger, now: time.Now}
}

func (j *TokenCleanupJob) Name() string { return "auth.token_cleanup" }

func (j *TokenCleanupJob) Run(ctx context.Context) error {
	if j == nil || j.Tokens == nil {
		return fmt.Errorf("token cleanup job dependencies not configured / 令牌清理任务依赖未配置")
	}
	deleted, err := j.Tokens.DeleteExpired(ctx, j.now().Unix())
	if err != nil {
		return fmt.Errorf("token cleanup job: %w", err)
	}
	if deleted > 0 {
		j.Logger.Info("expired refresh tokens deleted", "deleted_rows", deleted)
	}
	return nil
}
