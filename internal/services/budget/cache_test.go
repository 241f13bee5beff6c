package budget

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, zap.NewNop(), ttl), mr
}

func TestCache_SetGet(t *testing.T) {
	cache, _ := newTestCache(t, 0)
	period := CurrentPeriodStart(time.Now())

	_, ok := cache.Get(t.Context(), "jdoe", period)
	assert.False(t, ok)

	cache.Set(t.Context(), "jdoe", period, 42_000)
	used, ok := cache.Get(t.Context(), "jdoe", period)
	require.True(t, ok)
	assert.Equal(t, int64(42_000), used)
}

func TestCache_KeyIsPerUserAndPeriod(t *testing.T) {
	cache, mr := newTestCache(t, 0)
	period := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)

	cache.Set(t.Context(), "jdoe", period, 100)
	assert.True(t, mr.Exists("budget:jdoe:2026-08"))

	_, ok := cache.Get(t.Context(), "other", period)
	assert.False(t, ok)
	_, ok = cache.Get(t.Context(), "jdoe", period.AddDate(0, 1, 0))
	assert.False(t, ok)
}

func TestCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t, 0)
	period := CurrentPeriodStart(time.Now())

	cache.Set(t.Context(), "jdoe", period, 100)
	cache.Invalidate(t.Context(), "jdoe", period)

	_, ok := cache.Get(t.Context(), "jdoe", period)
	assert.False(t, ok)
}

func TestCache_EntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t, 30*time.Second)
	period := CurrentPeriodStart(time.Now())

	cache.Set(t.Context(), "jdoe", period, 100)
	mr.FastForward(31 * time.Second)

	_, ok := cache.Get(t.Context(), "jdoe", period)
	assert.False(t, ok)
}

func TestCache_GarbageValueReadsAsMiss(t *testing.T) {
	cache, mr := newTestCache(t, 0)
	period := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, mr.Set("budget:jdoe:2026-08", "not-a-number"))
	_, ok := cache.Get(t.Context(), "jdoe", period)
	assert.False(t, ok)
}

func TestCache_ServerDownReadsAsMiss(t *testing.T) {
	cache, mr := newTestCache(t, 0)
	period := CurrentPeriodStart(time.Now())
	mr.Close()

	_, ok := cache.Get(t.Context(), "jdoe", period)
	assert.False(t, ok)

	// Writes are best-effort too.
	assert.NotPanics(t, func() {
		cache.Set(t.Context(), "jdoe", period, 1)
		cache.Invalidate(t.Context(), "jdoe", period)
	})
}
