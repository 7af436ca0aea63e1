package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestSlidingWindowAllow(t *testing.T) {
	client, mr := newRedis(t)
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := SlidingWindow{Client: client, Prefix: "test:", Now: func() time.Time { return now }}

	ctx := context.Background()
	window := 2 * time.Second
	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, "key", window, 2)
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d", i)
		require.Equal(t, 1-i, d.Remaining)
		now = now.Add(time.Millisecond)
	}

	d, err := limiter.Allow(ctx, "key", window, 2)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Zero(t, d.Remaining)

	// Hits older than the window are trimmed on the next call.
	now = now.Add(window + time.Second)
	mr.FastForward(window)
	d, err = limiter.Allow(ctx, "key", window, 2)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestSlidingWindowDisabled(t *testing.T) {
	d, err := SlidingWindow{}.Allow(context.Background(), "key", time.Second, 3)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 3, d.Remaining)
}

func TestStoreLimiterFixedWindow(t *testing.T) {
	store := NewMemoryStoreLimiter("test")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		d, err := store.Allow(ctx, "studio:berlin", time.Minute, 3)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, 2-i, d.Remaining)
	}
	d, err := store.Allow(ctx, "studio:berlin", time.Minute, 3)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.True(t, d.ResetAt.After(time.Now()))

	other, err := store.Allow(ctx, "studio:hamburg", time.Minute, 3)
	require.NoError(t, err)
	require.True(t, other.Allowed)
}

func TestRedisStoreLimiter(t *testing.T) {
	client, _ := newRedis(t)
	store, err := NewRedisStoreLimiter(client, "ulule")
	require.NoError(t, err)

	ctx := context.Background()
	d, err := store.Allow(ctx, "k", time.Minute, 1)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	d, err = store.Allow(ctx, "k", time.Minute, 1)
	require.NoError(t, err)
	require.False(t, d.Allowed)
}
