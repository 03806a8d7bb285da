package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/async"
	"github.com/creamcroissant/vibemall/internal/notifier"
	"github.com/creamcroissant/vibemall/internal/repository/sqlite/sqlitetest"
)

// flakyNotifier 对指定收件人返回预设错误。
type flakyNotifier struct {
	mu       sync.Mutex
	failures map[string][]error
	sent     []string
}

func (n *flakyNotifier) SendEmail(_ context.Context, req notifier.EmailRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if errs := n.failures[req.To]; len(errs) > 0 {
		n.failures[req.To] = errs[1:]
		return errs[0]
	}
	n.sent = append(n.sent, req.To)
	return nil
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, Multiplier: 2}
}

func TestEmailDispatchRetriesAndLogs(t *testing.T) {
	store := sqlitetest.New(t)
	queue := async.NewNotificationQueue(0)
	transient := errors.New("connection reset")
	mail := &flakyNotifier{failures: map[string][]error{
		"flaky@x.io":   {transient},
		"unknown@x.io": {notifier.ErrNotImplemented},
	}}
	queue.Enqueue(notifier.EmailRequest{To: "ok@x.io", Subject: "Order", Kind: "ORDER_CONFIRMATION"})
	queue.Enqueue(notifier.EmailRequest{To: "flaky@x.io", Subject: "Order"})
	queue.Enqueue(notifier.EmailRequest{To: "unknown@x.io", Subject: "Order"})

	j := NewEmailDispatchJob(queue, mail, store.EmailLogs(), nil)
	j.Retry = fastRetry()
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, []string{"ok@x.io", "flaky@x.io"}, mail.sent)
	require.Zero(t, queue.Pending())

	logs, total, err := store.EmailLogs().List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	var failed int
	for _, l := range logs {
		if !l.SentSuccessfully {
			failed++
			require.Equal(t, "unknown@x.io", l.EmailTo)
		}
		if l.EmailTo == "ok@x.io" {
			require.Equal(t, "ORDER_CONFIRMATION", l.EmailType)
			require.Nil(t, l.OrderID)
		}
	}
	require.Equal(t, 1, failed)
}

func TestEmailDispatchRequeuesOnPersistentFailure(t *testing.T) {
	queue := async.NewNotificationQueue(0)
	down := errors.New("smtp down")
	mail := &flakyNotifier{failures: map[string][]error{"a@x.io": {down, down, down, down}}}
	queue.Enqueue(notifier.EmailRequest{To: "a@x.io", Subject: "s"})
	queue.Enqueue(notifier.EmailRequest{To: "b@x.io", Subject: "s"})

	j := NewEmailDispatchJob(queue, mail, nil, nil)
	j.Retry = fastRetry()
	err := j.Run(context.Background())
	require.ErrorIs(t, err, down)
	require.Equal(t, 2, queue.Pending())
	require.Empty(t, mail.sent)

	// 下一轮恢复后全部发出
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, []string{"a@x.io", "b@x.io"}, mail.sent)
}

func TestEmailDispatchRequiresDependencies(t *testing.T) {
	var j *EmailDispatchJob
	require.Error(t, j.Run(context.Background()))
}
