package async

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/notifier"
)

func TestQueueDrainAndRequeue(t *testing.T) {
	q := NewNotificationQueue(0)
	for _, to := range []string{"a@x.io", "b@x.io", "c@x.io"} {
		require.True(t, q.Enqueue(notifier.EmailRequest{To: to, Subject: "s"}))
	}

	first := q.Drain(2)
	require.Len(t, first, 2)
	assert.Equal(t, 1, q.Pending())

	q.Requeue(first[1])
	rest := q.Drain(0)
	require.Len(t, rest, 2)
	assert.Equal(t, "b@x.io", rest[0].To)
	assert.Equal(t, "c@x.io", rest[1].To)
	assert.Zero(t, q.Pending())
}

func TestQueueLimit(t *testing.T) {
	q := NewNotificationQueue(1)
	assert.True(t, q.Enqueue(notifier.EmailRequest{To: "a@x.io"}))
	assert.False(t, q.Enqueue(notifier.EmailRequest{To: "b@x.io"}))
	assert.False(t, q.Enqueue(notifier.EmailRequest{}))
}

func TestEnqueueClonesVariables(t *testing.T) {
	q := NewNotificationQueue(0)
	vars := map[string]any{"order": "ORD1"}
	q.Enqueue(notifier.EmailRequest{To: "a@x.io", Variables: vars})
	vars["order"] = "changed"

	got := q.Drain(0)
	assert.Equal(t, "ORD1", got[0].Variables["order"])
}

func TestQueueNotifier(t *testing.T) {
	q := NewNotificationQueue(0)
	n := NewQueueNotifier(q)

	require.NoError(t, n.SendEmail(context.Background(), notifier.EmailRequest{To: "a@x.io", Subject: "Order Confirmed"}))
	assert.Equal(t, 1, q.Pending())
	assert.Error(t, n.SendEmail(context.Background(), notifier.EmailRequest{To: "a@x.io"}))
}
