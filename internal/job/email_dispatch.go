// 文件路径: internal/job/email_dispatch.go
// 模块说明: 从内存队列取出邮件发送，每封记录一条 email_logs。
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/creamcroissant/vibemall/internal/async"
	"github.com/creamcroissant/vibemall/internal/notifier"
	"github.com/creamcroissant/vibemall/internal/repository"
)

const emailBatchSize = 50

// EmailDispatchJob 处理邮件通知队列。
type EmailDispatchJob struct {
	Queue    *async.NotificationQueue
	Notifier notifier.Service
	Logs     repository.EmailLogRepository
	Retry    RetryConfig
	Logger   *slog.Logger
	now      func() time.Time
}

// NewEmailDispatchJob 构造邮件发送任务；logs 可为 nil。
func NewEmailDispatchJob(queue *async.NotificationQueue, mail notifier.Service, logs repository.EmailLogRepository, logger *slog.Logger) *EmailDispatchJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailDispatchJob{
		Queue:    queue,
		Notifier: mail,
		Logs:     logs,
		Retry:    DefaultRetryConfig(),
		Logger:   logger,
		now:      time.Now,
	}
}

// Name 返回任务标识。
func (j *EmailDispatchJob) Name() string { return "email.dispatch" }

// Run 发送一批邮件。瞬时失败先退避重试，仍失败则放回队列并结束本轮。
func (j *EmailDispatchJob) Run(ctx context.Context) error {
	if j == nil || j.Queue == nil || j.Notifier == nil {
		return fmt.Errorf("email dispatch job dependencies not configured / 邮件发送任务依赖未配置")
	}
	emails := j.Queue.Drain(emailBatchSize)
	if len(emails) == 0 {
		return nil
	}
	sent := 0
	for i, req := range emails {
		err := withRetry(ctx, j.Retry, isPermanentMailError, func(ctx context.Context) error {
			return j.Notifier.SendEmail(ctx, req)
		})
		j.record(ctx, req, err)
		switch {
		case err == nil:
			sent++
		case isPermanentMailError(err):
			j.Logger.Warn("email dropped", "to", req.To, "kind", req.Kind, "error", err)
		default:
			j.Queue.Requeue(emails[i:]...)
			return fmt.Errorf("send email to %s: %w", req.To, err)
		}
	}
	j.Logger.Debug("emails sent", "count", sent, "batch", len(emails))
	return nil
}

func (j *EmailDispatchJob) record(ctx context.Context, req notifier.EmailRequest, sendErr error) {
	if j.Logs == nil {
		return
	}
	entry := &repository.EmailLog{
		EmailTo:          req.To,
		EmailType:        req.Kind,
		Subject:          req.Subject,
		SentSuccessfully: sendErr == nil,
		SentAt:           j.now().Unix(),
	}
	if req.OrderID > 0 {
		orderID := req.OrderID
		entry.OrderID = &orderID
	}
	if sendErr != nil {
		entry.ErrorMessage = sendErr.Error()
	}
	if err := j.Logs.Create(ctx, entry); err != nil {
		j.Logger.Warn("write email log failed", "to", req.To, "error", err)
	}
}

// isPermanentMailError 判断重试无意义的错误。
func isPermanentMailError(err error) bool {
	return errors.Is(err, notifier.ErrNotImplemented) || errors.Is(err, notifier.ErrInvalidRequest)
}
