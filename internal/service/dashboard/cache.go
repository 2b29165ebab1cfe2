package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"curatorhub/internal/priority"
	"curatorhub/pkg/metrics"
)

// ScheduleCache keeps computed schedules per user and date. Failures are
// logged and treated as misses.
type ScheduleCache interface {
	Get(ctx context.Context, userID int, date string) (*priority.DailySchedule, bool)
	Set(ctx context.Context, userID int, s *priority.DailySchedule)
	Invalidate(ctx context.Context, userID int)
}

func ScheduleKey(userID int, date string) string {
	return fmt.Sprintf("schedule:%d:%s", userID, date)
}

type RedisScheduleCache struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisScheduleCache(rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *RedisScheduleCache {
	return &RedisScheduleCache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *RedisScheduleCache) Get(ctx context.Context, userID int, date string) (*priority.DailySchedule, bool) {
	data, err := c.rdb.Get(ctx, ScheduleKey(userID, date)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup("schedule", "miss")
		return nil, false
	}
	if err != nil {
		metrics.RecordCacheLookup("schedule", "error")
		c.logger.Warn("Schedule cache read failed", zap.Int("user_id", userID), zap.Error(err))
		return nil, false
	}

	var s priority.DailySchedule
	if err := json.Unmarshal(data, &s); err != nil {
		metrics.RecordCacheLookup("schedule", "error")
		c.logger.Warn("Schedule cache entry is corrupt", zap.Int("user_id", userID), zap.Error(err))
		return nil, false
	}
	metrics.RecordCacheLookup("schedule", "hit")
	return &s, true
}

func (c *RedisScheduleCache) Set(ctx context.Context, userID int, s *priority.DailySchedule) {
	data, err := json.Marshal(s)
	if err != nil {
		c.logger.Warn("Failed to encode schedule", zap.Int("user_id", userID), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, ScheduleKey(userID, s.Date), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Schedule cache write failed", zap.Int("user_id", userID), zap.Error(err))
	}
}

// Invalidate drops every cached date of the user.
func (c *RedisScheduleCache) Invalidate(ctx context.Context, userID int) {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, fmt.Sprintf("schedule:%d:*", userID), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("Schedule cache scan failed", zap.Int("user_id", userID), zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Schedule cache invalidation failed", zap.Int("user_id", userID), zap.Error(err))
		return
	}
	c.logger.Debug("Schedule cache invalidated", zap.Int("user_id", userID), zap.Int("keys", len(keys)))
}
