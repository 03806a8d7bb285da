// 文件路径: internal/notifier/notifier.go
// 模块说明: 邮件通知的请求结构与投递接口。
package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// EmailRequest 描述一封待发送的邮件。
type EmailRequest struct {
	To        string
	Subject   string
	Body      string
	HTML      string
	Kind      string
	OrderID   int64
	Variables map[string]any
}

// Validate 检查收件人与主题。
func (r EmailRequest) Validate() error {
	if strings.TrimSpace(r.To) == "" {
		return fmt.Errorf("%w: recipient is required / 收件人不能为空", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Subject) == "" {
		return fmt.Errorf("%w: subject is required / 邮件主题不能为空", ErrInvalidRequest)
	}
	return nil
}

// Service 投递邮件。
type Service interface {
	SendEmail(ctx context.Context, req EmailRequest) error
}

var (
	// ErrNotImplemented 表示未配置真实发信通道。
	ErrNotImplemented = errors.New("notifier: mail transport not configured / 未配置发信通道")
	// ErrInvalidRequest 表示邮件请求缺少必填字段。
	ErrInvalidRequest = errors.New("notifier: invalid email request / 邮件请求无效")
)

// LoggerService 将邮件写入日志，适用于测试或未配置 SMTP 的环境。
type LoggerService struct {
	logger *slog.Logger
}

// NewLoggerService 创建仅记录日志的通知服务。
func NewLoggerService(logger *slog.Logger) *LoggerService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LoggerService{logger: logger}
}

func (s *LoggerService) SendEmail(ctx context.Context, req EmailRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "email notification", "to", req.To, "subject", req.Subject, "kind", req.Kind, "order_id", req.OrderID)
	return ErrNotImplemented
}
