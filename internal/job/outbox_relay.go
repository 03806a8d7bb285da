// 文件路径: internal/job/outbox_relay.go
// 模块说明: 把 outbox 中到期的事件投递到 Publisher。
package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/creamcroissant/vibemall/internal/events"
	"github.com/creamcroissant/vibemall/internal/repository"
)

const (
	relayBatchSize   = 100
	relayBaseDelay   = 30 * time.Second
	relayMaxExponent = 10
)

// OutboxRelayJob 投递待发布的订单事件。
type OutboxRelayJob struct {
	Outbox    repository.OutboxRepository
	Publisher events.Publisher
	Logger    *slog.Logger
	now       func() time.Time
}

// NewOutboxRelayJob 构造事件投递任务。
func NewOutboxRelayJob(outbox repository.OutboxRepository, publisher events.Publisher, logger *slog.Logger) *OutboxRelayJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxRelayJob{Outbox: outbox, Publisher: publisher, Logger: logger, now: time.Now}
}

// Name 返回任务标识。
func (j *OutboxRelayJob) Name() string { return "outbox.relay" }

// Run 逐条投递；失败的行按 2^attempts × 30s 推迟，不影响其余行。
func (j *OutboxRelayJob) Run(ctx context.Context) error {
	if j == nil || j.Outbox == nil || j.Publisher == nil {
		return fmt.Errorf("outbox relay job dependencies not configured / 事件投递任务依赖未配置")
	}
	now := j.now()
	due, err := j.Outbox.ListDue(ctx, now.Unix(), relayBatchSize)
	if err != nil {
		return fmt.Errorf("list due events: %w", err)
	}
	published, failed := 0, 0
	for _, msg := range due {
		if err := ctx.Err(); err != nil {
			return err
		}
		if pubErr := j.Publisher.Publish(ctx, msg); pubErr != nil {
			failed++
			attempts := msg.Attempts + 1
			next := now.Add(RelayDelay(attempts)).Unix()
			if err := j.Outbox.MarkFailed(ctx, msg.ID, attempts, next, pubErr.Error()); err != nil {
				return fmt.Errorf("mark event %d failed: %w", msg.ID, err)
			}
			j.Logger.Warn("event publish failed", "id", msg.ID, "topic", msg.Topic, "attempts", attempts, "error", pubErr)
			continue
		}
		if err := j.Outbox.MarkPublished(ctx, msg.ID, j.now().Unix()); err != nil {
			return fmt.Errorf("mark event %d published: %w", msg.ID, err)
		}
		published++
	}
	if len(due) > 0 {
		j.Logger.Debug("outbox relayed", "published", published, "failed", failed)
	}
	return nil
}

// RelayDelay 返回第 attempts 次失败后的等待时间。
func RelayDelay(attempts int) time.Duration {
	exp := min(max(attempts, 0), relayMaxExponent)
	return relayBaseDelay * time.Duration(1<<exp)
}
