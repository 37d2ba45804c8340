package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the sliding window with a sorted set per identifier.
// Members are nanosecond timestamps so pruning is a score range removal;
// the whole update runs in one transactional pipeline.
type RedisStore struct {
	rdb       *redis.Client
	keyPrefix string
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{
		rdb:       rdb,
		keyPrefix: "ratelimit:",
	}
}

func (s *RedisStore) key(identifier string) string {
	return s.keyPrefix + identifier
}

func member(at time.Time) string {
	return strconv.FormatInt(at.UnixNano(), 10)
}

func (s *RedisStore) Add(ctx context.Context, identifier string, now time.Time, window time.Duration) (int64, time.Time, error) {
	key := s.key(identifier)
	cutoff := now.Add(-window).UnixNano()

	pipe := s.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", cutoff))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member(now)})
	cardCmd := pipe.ZCard(ctx, key)
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("ratelimit pipeline: %w", err)
	}

	count := cardCmd.Val()

	var oldest time.Time
	if entries := oldestCmd.Val(); len(entries) > 0 {
		oldest = time.Unix(0, int64(entries[0].Score))
	}

	return count, oldest, nil
}

func (s *RedisStore) Remove(ctx context.Context, identifier string, at time.Time) error {
	return s.rdb.ZRem(ctx, s.key(identifier), member(at)).Err()
}

var _ Store = &RedisStore{}
