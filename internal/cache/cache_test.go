package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stats struct {
	Total int `json:"total"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Minute), mr
}

func TestFetchJSONCachesUntilBump(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return stats{Total: calls}, nil
	}

	key, err := c.BuildKey(ctx, "dashboard", "stats")
	require.NoError(t, err)
	require.Equal(t, "qualistock:dashboard:stats:v1", key)

	var got stats
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, 1, got.Total)
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, 1, got.Total)
	require.Equal(t, 1, calls)

	require.NoError(t, c.Bump(ctx))
	key, err = c.BuildKey(ctx, "dashboard", "stats")
	require.NoError(t, err)
	require.Equal(t, "qualistock:dashboard:stats:v2", key)

	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.Equal(t, 2, got.Total)
}

func TestFetchJSONExpiresWithTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return stats{Total: calls}, nil
	}
	var got stats
	require.NoError(t, c.FetchJSON(ctx, "k", &got, loader))
	mr.FastForward(2 * time.Minute)
	require.NoError(t, c.FetchJSON(ctx, "k", &got, loader))
	require.Equal(t, 2, calls)
}

func TestFetchJSONLoaderErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	boom := errors.New("boom")
	var got stats
	err := c.FetchJSON(ctx, "k", &got, func(context.Context) (interface{}, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists("k"))
}

func TestFetchJSONSharesConcurrentLoads(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	var calls int32
	release := make(chan struct{})
	loader := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return stats{Total: 7}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got stats
			assert.NoError(t, c.FetchJSON(ctx, "shared", &got, loader))
			assert.Equal(t, 7, got.Total)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	require.LessOrEqual(t, atomic.LoadInt32(&calls), int32(5))
	require.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestFetchJSONLoadSurvivesCancelledCaller(t *testing.T) {
	c, mr := newTestCache(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var loadErr atomic.Value
	loader := func(ctx context.Context) (interface{}, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			loadErr.Store(err)
		}
		return stats{Total: 7}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		var got stats
		first <- c.FetchJSON(ctx, "shared", &got, loader)
	}()
	<-started
	cancel()
	require.ErrorIs(t, <-first, context.Canceled)

	second := make(chan stats, 1)
	go func() {
		var got stats
		assert.NoError(t, c.FetchJSON(context.Background(), "shared", &got, func(context.Context) (interface{}, error) {
			return stats{Total: 99}, nil
		}))
		second <- got
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)

	assert.Equal(t, 7, (<-second).Total)
	assert.Nil(t, loadErr.Load())
	assert.True(t, mr.Exists("shared"))
}

func TestNilCacheCallsLoader(t *testing.T) {
	var c *Cache
	var got stats
	require.NoError(t, c.FetchJSON(context.Background(), "k", &got, func(context.Context) (interface{}, error) {
		return stats{Total: 3}, nil
	}))
	require.Equal(t, 3, got.Total)
	require.NoError(t, c.Bump(context.Background()))
}
