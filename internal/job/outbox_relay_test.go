package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/events"
	"github.com/creamcroissant/vibemall/internal/repository"
	"github.com/creamcroissant/vibemall/internal/repository/sqlite/sqlitetest"
)

type stubPublisher struct {
	fail   map[string]bool
	topics []string
}

func (p *stubPublisher) Publish(_ context.Context, msg repository.OutboxMessage) error {
	if p.fail[msg.Topic] {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, msg.Topic)
	return nil
}

func (p *stubPublisher) Close() error { return nil }

func TestOutboxRelay(t *testing.T) {
	store := sqlitetest.New(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	require.NoError(t, events.Record(ctx, store.Outbox(), events.TopicOrderPlaced, 1, map[string]int{"order_id": 1}, now))
	require.NoError(t, events.Record(ctx, store.Outbox(), events.TopicOrderRejected, 2, map[string]int{"order_id": 2}, now))

	pub := &stubPublisher{fail: map[string]bool{events.TopicOrderRejected: true}}
	j := NewOutboxRelayJob(store.Outbox(), pub, nil)
	j.now = func() time.Time { return now }
	require.NoError(t, j.Run(ctx))
	require.Equal(t, []string{events.TopicOrderPlaced}, pub.topics)

	pending, err := store.Outbox().CountPending(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), pending)

	// 退避期内不重试
	require.NoError(t, j.Run(ctx))
	require.Len(t, pub.topics, 1)

	due, err := store.Outbox().ListDue(ctx, now.Add(time.Minute).Unix(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, 1, due[0].Attempts)
	require.Equal(t, "broker unavailable", due[0].LastError)
	require.Equal(t, now.Add(time.Minute).Unix(), due[0].NextAttemptAt)

	delete(pub.fail, events.TopicOrderRejected)
	j.now = func() time.Time { return now.Add(time.Minute) }
	require.NoError(t, j.Run(ctx))
	pending, err = store.Outbox().CountPending(ctx)
	require.NoError(t, err)
	require.Zero(t, pending)
}

func TestRelayDelay(t *testing.T) {
	require.Equal(t, 30*time.Second, RelayDelay(0))
	require.Equal(t, time.Minute, RelayDelay(1))
	require.Equal(t, 4*time.Minute, RelayDelay(3))
	require.Equal(t, RelayDelay(relayMaxExponent), RelayDelay(50))
}
