// internal/runtime/memory/redis.go
package memory

import (
	"context"
	"errors"
	"time"

	apperrors "shopping-agent/internal/common/errors"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "agent:mem:"

// RedisStore keeps each user's facts in one hash so a user's memory expires together.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(userID string) string {
	return redisKeyPrefix + userID
}

func (s *RedisStore) Update(ctx context.Context, userID, key, value string) error {
	k := redisKey(userID)
	if err := s.client.HSet(ctx, k, key, value).Err(); err != nil {
		return apperrors.NewCacheError("memory.update", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, k, s.ttl).Err(); err != nil {
			return apperrors.NewCacheError("memory.expire", err)
		}
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, userID, key string) (string, bool, error) {
	v, err := s.client.HGet(ctx, redisKey(userID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.NewCacheError("memory.get", err)
	}
	return v, true, nil
}
