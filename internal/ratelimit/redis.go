package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// hitScript implements one fixed-window hit atomically. The caller's clock is
// passed in so every instance agrees on window boundaries.
var hitScript = goredis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
local count = tonumber(redis.call('HGET', key, 'count') or '0')
local reset = tonumber(redis.call('HGET', key, 'reset') or '0')
if count == 0 or now > reset then
  reset = now + window
  redis.call('HSET', key, 'count', 1, 'reset', reset)
  redis.call('PEXPIRE', key, window + 1000)
  return {1, max - 1, reset}
end
if count >= max then
  return {0, 0, reset}
end
count = redis.call('HINCRBY', key, 'count', 1)
return {1, max - count, reset}
`)

// RedisStore shares windows between instances. Keys expire shortly after
// their window closes, so no sweeping is needed.
type RedisStore struct {
	rdb *goredis.Client
}

func NewRedisStore(rdb *goredis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Hit(ctx context.Context, key string, opts Options, now time.Time) (Result, error) {
	raw, err := hitScript.Run(
		ctx,
		s.rdb,
		[]string{redisKeyPrefix + key},
		now.UnixMilli(),
		opts.Window.Milliseconds(),
		opts.MaxRequests,
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit hit: %w", err)
	}
	if len(raw) != 3 {
		return Result{}, fmt.Errorf("rate limit hit: unexpected reply length %d", len(raw))
	}
	return Result{
		Allowed:   raw[0] == 1,
		Remaining: int(raw[1]),
		ResetTime: time.UnixMilli(raw[2]),
	}, nil
}

func (s *RedisStore) Peek(ctx context.Context, key string, _ time.Time) (int, time.Time, bool, error) {
	values, err := s.rdb.HMGet(ctx, redisKeyPrefix+key, "count", "reset").Result()
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("rate limit peek: %w", err)
	}
	if len(values) != 2 || values[0] == nil || values[1] == nil {
		return 0, time.Time{}, false, nil
	}
	count, err := strconv.Atoi(fmt.Sprint(values[0]))
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("rate limit peek: bad count: %w", err)
	}
	resetMillis, err := strconv.ParseInt(fmt.Sprint(values[1]), 10, 64)
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("rate limit peek: bad reset: %w", err)
	}
	return count, time.UnixMilli(resetMillis), true, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("rate limit reset: %w", err)
	}
	return nil
}
