package budget

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is an optional Redis read-through for the monthly counters. It only
// shortens the read path; writes always go to the store and invalidate here.
type Cache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

func NewCache(client *redis.Client, logger *zap.Logger, ttl time.Duration) *Cache {
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return &Cache{client: client, logger: logger, ttl: ttl}
}

func (c *Cache) key(userID string, period time.Time) string {
	return fmt.Sprintf("budget:%s:%s", userID, period.Format("2006-01"))
}

// Get returns the cached usage and whether it was present. Any Redis fault
// reads as a miss.
func (c *Cache) Get(ctx context.Context, userID string, period time.Time) (int64, bool) {
	val, err := c.client.Get(ctx, c.key(userID, period)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("budget cache read failed", zap.Error(err))
		}
		return 0, false
	}
	used, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return used, true
}

func (c *Cache) Set(ctx context.Context, userID string, period time.Time, used int64) {
	if err := c.client.Set(ctx, c.key(userID, period),
		strconv.FormatInt(used, 10), c.ttl).Err(); err != nil {
		c.logger.Debug("budget cache write failed", zap.Error(err))
	}
}

func (c *Cache) Invalidate(ctx context.Context, userID string, period time.Time) {
	if err := c.client.Del(ctx, c.key(userID, period)).Err(); err != nil {
		c.logger.Debug("budget cache invalidation failed", zap.Error(err))
	}
}
