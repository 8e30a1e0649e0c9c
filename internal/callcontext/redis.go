package callcontext

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisclient "callbridge/internal/clients/redis"

	"github.com/google/uuid"
)

const redisKeyPrefix = "callctx:"

// KeyValue is the subset of the Redis client the store needs.
type KeyValue interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisStore keeps contexts as JSON strings under callctx:<key> with SET EX.
// It lets any replica serve the media stream of a call created elsewhere.
type RedisStore struct {
	kv KeyValue
}

func NewRedisStore(kv KeyValue) *RedisStore {
	return &RedisStore{kv: kv}
}

func (s *RedisStore) Set(ctx context.Context, key string, cc CallContext, ttl time.Duration) error {
	raw, err := json.Marshal(cc)
	if err != nil {
		return fmt.Errorf("failed to encode call context: %w", err)
	}
	if err := s.kv.Set(ctx, redisKeyPrefix+key, string(raw), ttl); err != nil {
		return fmt.Errorf("failed to store call context in redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (CallContext, error) {
	raw, err := s.kv.Get(ctx, redisKeyPrefix+key)
	if errors.Is(err, redisclient.ErrKeyNotFound) {
		return CallContext{}, ErrNotFound
	}
	if err != nil {
		return CallContext{}, fmt.Errorf("failed to read call context from redis: %w", err)
	}

	var cc CallContext
	if err := json.Unmarshal([]byte(raw), &cc); err != nil {
		return CallContext{}, fmt.Errorf("failed to decode call context: %w", err)
	}
	return cc, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.kv.Del(ctx, redisKeyPrefix+key); err != nil {
		return fmt.Errorf("failed to delete call context from redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Issue(ctx context.Context, cc CallContext, ttl time.Duration) (string, error) {
	key := "temp_" + uuid.NewString()
	if err := s.Set(ctx, key, cc, ttl); err != nil {
		return "", err
	}
	return key, nil
}
