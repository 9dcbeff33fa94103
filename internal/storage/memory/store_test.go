package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitlog/backend/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(d)
}

func TestMemoryStore_RateLimit(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{cur: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewStoreWithClock(clock.Now)

	t.Run("窗口内计数递增", func(t *testing.T) {
		for i := int64(1); i <= 5; i++ {
			count, resetAt, err := store.IncrementRateLimit(ctx, "1.2.3.4", time.Hour)
			require.NoError(t, err)
			assert.Equal(t, i, count)
			assert.Equal(t, clock.Now().Add(time.Hour), resetAt)
		}

		count, _, err := store.GetRateLimit(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, int64(5), count)
	})

	t.Run("不同键互不影响", func(t *testing.T) {
		count, _, err := store.IncrementRateLimit(ctx, "5.6.7.8", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("窗口结束后重新计数", func(t *testing.T) {
		clock.Advance(time.Hour)

		count, _, err := store.GetRateLimit(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)

		count, resetAt, err := store.IncrementRateLimit(ctx, "1.2.3.4", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, clock.Now().Add(time.Hour), resetAt)
	})

	t.Run("空键被拒绝", func(t *testing.T) {
		_, _, err := store.IncrementRateLimit(ctx, "", time.Hour)
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
	})
}

func TestMemoryStore_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{cur: time.Now()}
	store := NewStoreWithClock(clock.Now)

	_, _, err := store.IncrementRateLimit(ctx, "a", time.Minute)
	require.NoError(t, err)
	_, _, err = store.IncrementRateLimit(ctx, "b", time.Hour)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, store.CleanupExpired())

	count, _, err := store.GetRateLimit(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStore_KeyValue(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_, ok, err := store.GetValue(ctx, "feedback_draft")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetValue(ctx, "feedback_draft", `{"suggestion":"hello"}`))
	require.NoError(t, store.SetValue(ctx, "feedback_draft_time", "2024-01-01T00:00:00Z"))

	v, ok, err := store.GetValue(ctx, "feedback_draft")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"suggestion":"hello"}`, v)

	require.NoError(t, store.DeleteValue(ctx, "feedback_draft", "feedback_draft_time", "missing"))
	_, ok, _ = store.GetValue(ctx, "feedback_draft")
	assert.False(t, ok)
	_, ok, _ = store.GetValue(ctx, "feedback_draft_time")
	assert.False(t, ok)

	assert.ErrorIs(t, store.SetValue(ctx, "", "x"), storage.ErrInvalidKey)
}

func TestMemoryStore_ConcurrentIncrement(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = store.IncrementRateLimit(ctx, "shared", time.Hour)
		}()
	}
	wg.Wait()

	count, _, err := store.GetRateLimit(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, int64(50), count)
}
