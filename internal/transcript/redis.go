package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const redisKeyPrefix = "transcript:"

// ListClient is the subset of the Redis client the store needs.
type ListClient interface {
	RPushExpire(ctx context.Context, key string, ttl time.Duration, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisStore keeps each transcript as a list of JSON entries under
// transcript:<callSid>. Every append refreshes the list's TTL.
type RedisStore struct {
	client ListClient
	ttl    time.Duration
}

func NewRedisStore(client ListClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Append(ctx context.Context, callSID string, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode transcript entry: %w", err)
	}
	if err := s.client.RPushExpire(ctx, redisKeyPrefix+callSID, s.ttl, string(raw)); err != nil {
		return fmt.Errorf("failed to append transcript entry to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, callSID string) ([]Entry, error) {
	items, err := s.client.LRange(ctx, redisKeyPrefix+callSID, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript from redis: %w", err)
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode transcript entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *RedisStore) Delete(ctx context.Context, callSID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+callSID); err != nil {
		return fmt.Errorf("failed to delete transcript from redis: %w", err)
	}
	return nil
}
