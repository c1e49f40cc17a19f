package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "tiskarna:idempotency:order:"

type redisState struct {
	Status      string `json:"status"`
	Fingerprint string `json:"fingerprint"`
	OrderID     int64  `json:"order_id,omitempty"`
}

// RedisStore keeps keys in Redis so replicas share them.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore returns a store backed by client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(k string) string {
	return keyPrefix + k
}

// Reserve implements Store.
func (s *RedisStore) Reserve(ctx context.Context, key, fingerprint string) (int64, error) {
	k := s.key(key)

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		data, err := s.client.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			raw, _ := json.Marshal(redisState{Status: statusProcessing, Fingerprint: fingerprint})
			_, err := s.client.SetArgs(ctx, k, raw, redis.SetArgs{Mode: "NX", TTL: TTL}).Result()
			if errors.Is(err, redis.Nil) {
				// Lost the race to another request; read its state.
				continue
			}
			if err != nil {
				return 0, fmt.Errorf("redis set: %w", err)
			}
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("redis get: %w", err)
		}

		var state redisState
		if err := json.Unmarshal(data, &state); err != nil {
			return 0, fmt.Errorf("redis unmarshal: %w", err)
		}

		switch {
		case state.Status != statusDone && state.Status != statusProcessing:
			// Unknown state: drop it and claim the key afresh.
			if err := s.client.Del(ctx, k).Err(); err != nil {
				return 0, fmt.Errorf("redis del: %w", err)
			}
		case state.Fingerprint != fingerprint:
			return 0, ErrMismatch
		case state.Status == statusDone:
			return state.OrderID, nil
		default:
			return 0, ErrInProgress
		}
	}
}

// Complete implements Store.
func (s *RedisStore) Complete(ctx context.Context, key, fingerprint string, orderID int64) error {
	raw, err := json.Marshal(redisState{Status: statusDone, Fingerprint: fingerprint, OrderID: orderID})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(key), raw, TTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Release implements Store.
func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
