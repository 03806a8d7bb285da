// 文件路径: internal/bootstrap/infra.go
// 模块说明: 组装缓存、令牌、哈希、发信队列、限流、审计与事件投递等共享组件。
package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/creamcroissant/vibemall/internal/async"
	"github.com/creamcroissant/vibemall/internal/auth/token"
	"github.com/creamcroissant/vibemall/internal/cache"
	"github.com/creamcroissant/vibemall/internal/config"
	"github.com/creamcroissant/vibemall/internal/events"
	"github.com/creamcroissant/vibemall/internal/notifier"
	"github.com/creamcroissant/vibemall/internal/security"
	"github.com/creamcroissant/vibemall/internal/support/hash"
)

const emailQueueLimit = 1000

// Infrastructure bundles shared helpers required by services and jobs.
type Infrastructure struct {
	Cache       cache.Store
	Token       *token.Manager
	Hasher      hash.Hasher
	Mailer      notifier.Service
	EmailQueue  *async.NotificationQueue
	Notifier    notifier.Service
	RateLimiter *security.RateLimiter
	Audit       security.Recorder
	Publisher   events.Publisher
}

// BuildInfrastructure wires default implementations. cfg.Auth.SigningKey must already be resolved.
func BuildInfrastructure(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required / 配置不能为空")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cacheStore := cache.NewStore(cache.Options{
		Prefix:          "vibemall",
		DefaultTTL:      5 * time.Minute,
		CleanupInterval: time.Minute,
	})

	if cfg.Auth.SigningKey == "" || cfg.Auth.SigningKey == placeholderSecret {
		return nil, fmt.Errorf("auth.signing_key must be changed from default value")
	}

	tokenManager, err := token.NewManager(token.Options{
		SigningKey: []byte(cfg.Auth.SigningKey),
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		TTL:        cfg.Auth.TokenTTL,
		Leeway:     cfg.Auth.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}

	hasher, err := hash.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt hasher: %w", err)
	}

	rateLimiter, err := security.NewRateLimiter(cacheStore)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	mailer, err := BuildMailer(cfg.Mail, logger)
	if err != nil {
		return nil, err
	}
	publisher, err := BuildPublisher(cfg.Events, logger)
	if err != nil {
		return nil, err
	}

	queue := async.NewNotificationQueue(emailQueueLimit)

	return &Infrastructure{
		Cache:       cacheStore,
		Token:       tokenManager,
		Hasher:      hasher,
		Mailer:      mailer,
		EmailQueue:  queue,
		Notifier:    async.NewQueueNotifier(queue),
		RateLimiter: rateLimiter,
		Audit:       security.NewLoggerRecorder(logger),
		Publisher:   publisher,
	}, nil
}

// BuildMailer 在配置了 SMTP 主机时返回 SMTP 发信，否则只写日志。
func BuildMailer(cfg config.MailConfig, logger *slog.Logger) (notifier.Service, error) {
	if cfg.Host == "" {
		return notifier.NewLoggerService(logger), nil
	}
	smtp, err := notifier.NewSMTPService(notifier.SMTPOptions{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	})
	if err != nil {
		return nil, fmt.Errorf("smtp mailer: %w", err)
	}
	return smtp, nil
}

// BuildPublisher 在配置了 AMQP 地址时投递到消息总线，否则写日志。
func BuildPublisher(cfg config.EventsConfig, logger *slog.Logger) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		return events.NewLogPublisher(logger), nil
	}
	p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.Exchange, logger)
	if err != nil {
		return nil, fmt.Errorf("amqp publisher: %w", err)
	}
	return p, nil
}
