// 文件路径: internal/async/notification_queue.go
// 模块说明: 待发送邮件的内存队列，由 email.dispatch 任务消费。
package async

import (
	"maps"
	"sync"

	"github.com/creamcroissant/vibemall/internal/notifier"
)

// NotificationQueue buffers outbound email for background dispatch.
type NotificationQueue struct {
	mu     sync.Mutex
	emails []notifier.EmailRequest
	limit  int
}

// NewNotificationQueue returns an empty queue; limit <= 0 means unbounded.
func NewNotificationQueue(limit int) *NotificationQueue {
	return &NotificationQueue{limit: limit}
}

// Enqueue appends a pending email; it reports false when the queue is full.
func (q *NotificationQueue) Enqueue(req notifier.EmailRequest) bool {
	if q == nil || req.To == "" {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 && len(q.emails) >= q.limit {
		return false
	}
	q.emails = append(q.emails, cloneEmailRequest(req))
	return true
}

// Drain returns at most n pending emails (all when n <= 0) and removes them from the queue.
func (q *NotificationQueue) Drain(n int) []notifier.EmailRequest {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if n <= 0 || n > len(q.emails) {
		n = len(q.emails)
	}
	drained := q.emails[:n:n]
	q.emails = append([]notifier.EmailRequest(nil), q.emails[n:]...)
	return drained
}

// Requeue puts failed emails back at the front, keeping their order.
func (q *NotificationQueue) Requeue(reqs ...notifier.EmailRequest) {
	if q == nil || len(reqs) == 0 {
		return
	}
	cloned := make([]notifier.EmailRequest, 0, len(reqs))
	for _, r := range reqs {
		if r.To != "" {
			cloned = append(cloned, cloneEmailRequest(r))
		}
	}
	q.mu.Lock()
	q.emails = append(cloned, q.emails...)
	q.mu.Unlock()
}

// Pending reports buffered email tasks.
func (q *NotificationQueue) Pending() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.emails)
}

func cloneEmailRequest(req notifier.EmailRequest) notifier.EmailRequest {
	cloned := req
	if len(req.Variables) > 0 {
		cloned.Variables = maps.Clone(req.Variables)
	}
	return cloned
}
