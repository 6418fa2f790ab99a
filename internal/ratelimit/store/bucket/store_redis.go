package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"agentconsent/internal/ratelimit/models"
)

const redisKeyPrefix = "agentconsent:"

// slidingWindowScript trims the sorted set to the window, then admits cost
// entries when they fit. Returns {allowed, remaining, reset_ms}.
var slidingWindowScript = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])
local cost   = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count + cost > limit then
  local reset = now + window
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  if oldest[2] then reset = tonumber(oldest[2]) + window end
  return {0, limit - count, reset}
end

for i = 1, cost do
  redis.call('ZADD', key, now, member .. ':' .. i)
end
redis.call('PEXPIRE', key, window)
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
return {1, limit - count - cost, tonumber(oldest[2]) + window}
`)

// RedisBucketStore shares sliding windows across replicas. Each key is a
// sorted set of request timestamps in milliseconds.
type RedisBucketStore struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedisBucketStore(client redis.Cmdable) *RedisBucketStore {
	return &RedisBucketStore{client: client, now: time.Now}
}

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	return s.AllowN(ctx, key, 1, limit, window)
}

func (s *RedisBucketStore) AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*models.RateLimitResult, error) {
	now := s.now()
	vals, err := slidingWindowScript.Run(ctx, s.client, []string{redisKeyPrefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, cost, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 3 {
		return nil, fmt.Errorf("rate limit script: unexpected reply length %d", len(vals))
	}

	allowed := vals[0] == 1
	resetAt := time.UnixMilli(vals[2])
	return &models.RateLimitResult{
		Allowed:    allowed,
		Limit:      limit,
		Remaining:  max(int(vals[1]), 0),
		ResetAt:    resetAt,
		RetryAfter: models.RetryAfterSeconds(allowed, resetAt, now),
	}, nil
}

func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKeyPrefix+key).Err()
}

// GetCurrentCount counts entries newer than window ago. Expired members are
// left for the next AllowN to trim.
func (s *RedisBucketStore) GetCurrentCount(ctx context.Context, key string, window time.Duration) (int, error) {
	minScore := fmt.Sprintf("(%d", s.now().Add(-window).UnixMilli())
	n, err := s.client.ZCount(ctx, redisKeyPrefix+key, minScore, "+inf").Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
