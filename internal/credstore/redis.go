package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "walletgate:v1:"

// RedisStore keeps the pair under two durable keys per profile, written
// together in one MULTI/EXEC so readers see either the old or the new pair.
type RedisStore struct {
	client     *redis.Client
	accessKey  string
	refreshKey string
}

// NewRedisStore builds a store for the given profile name.
func NewRedisStore(client *redis.Client, profile string) *RedisStore {
	prefix := redisKeyPrefix + profile + ":"
	return &RedisStore{
		client:     client,
		accessKey:  prefix + "accessToken",
		refreshKey: prefix + "refreshToken",
	}
}

func (s *RedisStore) Get(ctx context.Context) (Pair, error) {
	values, err := s.client.MGet(ctx, s.accessKey, s.refreshKey).Result()
	if err != nil {
		return Pair{}, fmt.Errorf("redis mget credentials: %w", err)
	}

	access, _ := values[0].(string)
	refresh, _ := values[1].(string)
	if access == "" && refresh == "" {
		return Pair{}, ErrNotFound
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *RedisStore) Set(ctx context.Context, pair Pair) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.accessKey, pair.AccessToken, 0)
		if pair.RefreshToken == "" {
			pipe.Del(ctx, s.refreshKey)
		} else {
			pipe.Set(ctx, s.refreshKey, pair.RefreshToken, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis store credentials: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.accessKey, s.refreshKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis clear credentials: %w", err)
	}
	return nil
}
