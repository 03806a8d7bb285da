package events

import (
	"context"
	"log/slog"

	"github.com/creamcroissant/vibemall/internal/repository"
)

// LogPublisher 在未配置消息总线时把事件写入结构化日志。
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, msg repository.OutboxMessage) error {
	p.logger.InfoContext(ctx, "order event",
		"topic", msg.Topic,
		"message_id", msg.MessageID,
		"aggregate_id", msg.AggregateID,
		"payload", string(msg.Payload),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
