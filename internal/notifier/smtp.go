package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
)

// SMTPOptions 配置 SMTP 发信。
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPService 通过 SMTP 服务器投递邮件。
type SMTPService struct {
	opts SMTPOptions
	dial func(ctx context.Context, msg *mail.Msg) error
}

// NewSMTPService 校验配置并返回发信服务。
func NewSMTPService(opts SMTPOptions) (*SMTPService, error) {
	if strings.TrimSpace(opts.Host) == "" {
		return nil, fmt.Errorf("smtp host is required / SMTP 主机不能为空")
	}
	if strings.TrimSpace(opts.From) == "" {
		return nil, fmt.Errorf("smtp sender is required / 发件人不能为空")
	}
	if opts.Port <= 0 {
		opts.Port = 587
	}
	s := &SMTPService{opts: opts}
	s.dial = s.dialAndSend
	return s, nil
}

func (s *SMTPService) SendEmail(ctx context.Context, req EmailRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	msg, err := s.buildMessage(req)
	if err != nil {
		return err
	}
	return s.dial(ctx, msg)
}

func (s *SMTPService) buildMessage(req EmailRequest) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.opts.From); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(req.To); err != nil {
		return nil, fmt.Errorf("smtp to %s: %w", req.To, err)
	}
	msg.Subject(req.Subject)
	msg.SetBodyString(mail.TypeTextPlain, req.Body)
	if req.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, req.HTML)
	}
	return msg, nil
}

func (s *SMTPService) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	options := []mail.Option{
		mail.WithPort(s.opts.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if s.opts.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.opts.Username),
			mail.WithPassword(s.opts.Password),
		)
	}
	client, err := mail.NewClient(s.opts.Host, options...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
