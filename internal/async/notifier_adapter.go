package async

import (
	"context"
	"fmt"

	"github.com/creamcroissant/vibemall/internal/notifier"
)

// QueueNotifier implements notifier.Service by enqueueing requests for the email job.
type QueueNotifier struct {
	queue *NotificationQueue
}

// NewQueueNotifier wraps a notification queue so services can "send" without blocking on SMTP.
func NewQueueNotifier(queue *NotificationQueue) notifier.Service {
	return &QueueNotifier{queue: queue}
}

func (n *QueueNotifier) SendEmail(_ context.Context, req notifier.EmailRequest) error {
	if n == nil || n.queue == nil {
		return fmt.Errorf("notification queue unavailable / 通知队列不可用")
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if !n.queue.Enqueue(req) {
		return fmt.Errorf("notification queue full / 通知队列已满")
	}
	return nil
}
