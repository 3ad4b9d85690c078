package calendar

import (
	"context"
	"errors"
	"time"

	"taskDesk/internal/logger"
	"taskDesk/internal/models/task"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cacheKeyPrefix = "taskdesk:holiday:"
	// stored for working days so they are cached too
	noHoliday = "\x00"
)

// Cached keeps lookups of a slower source in redis. A redis failure falls back
// to the source; only source errors reach the caller.
type Cached struct {
	next Holidays
	rdb  redis.UniversalClient
	ttl  time.Duration
}

func NewCached(next Holidays, rdb redis.UniversalClient, ttl time.Duration) *Cached {
	return &Cached{next: next, rdb: rdb, ttl: ttl}
}

func (c *Cached) Lookup(ctx context.Context, day time.Time) (string, bool, error) {
	key := cacheKeyPrefix + task.FormatDate(day)

	val, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if val == noHoliday {
			return "", false, nil
		}
		return val, true, nil
	case !errors.Is(err, redis.Nil):
		logger.Warn("Calendar: Holiday cache read failed", zap.String("key", key), zap.Error(err))
	}

	name, ok, err := c.next.Lookup(ctx, day)
	if err != nil {
		return "", false, err
	}

	stored := noHoliday
	if ok {
		stored = name
	}
	if err := c.rdb.Set(ctx, key, stored, c.ttl).Err(); err != nil {
		logger.Warn("Calendar: Holiday cache write failed", zap.String("key", key), zap.Error(err))
	}
	return name, ok, nil
}
