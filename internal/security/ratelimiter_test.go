package security

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/cache"
)

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	ctx := context.Background()
	limiter, err := NewRateLimiter(cache.NewStore(cache.Options{}))
	require.NoError(t, err)

	key := Key("login", " Asha@Example.com ")
	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)

	limiter.Reset(ctx, key)
	res, err = limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRateLimiterRejectsBadLimit(t *testing.T) {
	limiter, err := NewRateLimiter(cache.NewStore(cache.Options{}))
	require.NoError(t, err)
	_, err = limiter.Allow(context.Background(), "k", 0, time.Second)
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "login:asha", Key("login", "", " ASHA "))
}

func TestLoggerRecorderWritesKind(t *testing.T) {
	var buf bytes.Buffer
	rec := NewLoggerRecorder(slog.New(slog.NewJSONHandler(&buf, nil)))
	rec.Record(context.Background(), Event{Kind: KindOrderApproved, ActorID: 1, TargetID: 9})

	assert.Contains(t, buf.String(), `"kind":"order.approved"`)
	assert.Contains(t, buf.String(), `"target_id":9`)
}
