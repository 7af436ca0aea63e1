package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// StoreLimiter is a fixed-window backend on top of a ulule limiter store.
type StoreLimiter struct {
	Store limiter.Store
}

// NewRedisStoreLimiter builds a StoreLimiter sharing the application Redis.
func NewRedisStoreLimiter(rdb *redis.Client, prefix string) (StoreLimiter, error) {
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return StoreLimiter{}, err
	}
	return StoreLimiter{Store: store}, nil
}

// NewMemoryStoreLimiter keeps counters in process memory.
func NewMemoryStoreLimiter(prefix string) StoreLimiter {
	return StoreLimiter{Store: memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: prefix, CleanUpInterval: time.Minute})}
}

// Allow implements Backend.
func (s StoreLimiter) Allow(ctx context.Context, key string, window time.Duration, limit int) (Decision, error) {
	if s.Store == nil || limit <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: limit, ResetAt: time.Now().Add(window)}, nil
	}
	lim := limiter.New(s.Store, limiter.Rate{Period: window, Limit: int64(limit)})
	res, err := lim.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Remaining: int(res.Remaining),
		ResetAt:   time.Unix(res.Reset, 0),
	}, nil
}
