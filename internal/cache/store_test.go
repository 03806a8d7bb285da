package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeIsolation(t *testing.T) {
	ctx := context.Background()
	root := NewStore(Options{Prefix: "vibemall"})
	auth := root.Scope("auth")
	catalog := root.Scope("catalog")

	auth.Mark(ctx, "42", time.Minute)
	assert.False(t, catalog.Marked(ctx, "42"))
	assert.True(t, root.Marked(ctx, "auth:42"))
	assert.True(t, root.Scope(":auth:").Marked(ctx, "42"))

	auth.Forget(ctx, "42")
	assert.False(t, auth.Marked(ctx, "42"))
}

func TestIncrKeepsWindow(t *testing.T) {
	ctx := context.Background()
	s := NewStore(Options{})

	n, err := s.Incr(ctx, "hits", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Incr(ctx, "hits", 2, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, int64(3), s.Count(ctx, "hits"))
	assert.Zero(t, s.Count(ctx, "missing"))

	left, ok := s.Remaining(ctx, "hits")
	require.True(t, ok)
	assert.LessOrEqual(t, left, time.Minute)
}

func TestLoadJSONRejectsNonJSONValue(t *testing.T) {
	ctx := context.Background()
	s := NewStore(Options{})
	s.Mark(ctx, "flag", time.Minute)

	var dest map[string]int
	hit, err := s.LoadJSON(ctx, "flag", &dest)
	assert.False(t, hit)
	assert.Error(t, err)
}

func TestRememberJSONLoadsOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore(Options{})
	calls := 0
	load := func(context.Context) (map[string]int, error) {
		calls++
		return map[string]int{"MOBILES": 3}, nil
	}

	first, err := RememberJSON(ctx, s, "counts", time.Minute, load)
	require.NoError(t, err)
	second, err := RememberJSON(ctx, s, "counts", time.Minute, load)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestRememberJSONPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := RememberJSON(context.Background(), NewStore(Options{}), "x", 0, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}
