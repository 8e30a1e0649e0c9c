package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"callbridge/internal/config"
	"callbridge/internal/observability"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrKeyNotFound is returned when a key does not exist or has expired
	ErrKeyNotFound = errors.New("redis: key not found")
	// ErrNotInitialized is returned by every helper on a disabled client
	ErrNotInitialized = errors.New("redis client not initialized")
)

// Client wraps the Redis client with observability
type Client struct {
	client *redis.Client
	logger *observability.Logger
}

// NewClient creates a new Redis client. It returns nil when Redis is disabled.
func NewClient(cfg config.RedisConfig, logger *observability.Logger) (*Client, error) {
	if !cfg.Enabled {
		logger.Info(context.Background(), "Redis is disabled, skipping client initialization")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "addr", Value: cfg.Addr()},
		observability.Field{Key: "db", Value: cfg.DB},
	)
	logger.Info(ctx, "successfully connected to Redis")

	return &Client{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// IsEnabled returns whether Redis is enabled
func (c *Client) IsEnabled() bool {
	return c != nil && c.client != nil
}

// Set stores a string value with an expiration (SET key value EX ttl)
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if !c.IsEnabled() {
		return ErrNotInitialized
	}
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Get returns the string value of a key, ErrKeyNotFound when it is absent
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if !c.IsEnabled() {
		return "", ErrNotInitialized
	}
	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return value, err
}

// Del deletes keys
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if !c.IsEnabled() {
		return ErrNotInitialized
	}
	return c.client.Del(ctx, keys...).Err()
}

// RPushExpire appends values to a list and refreshes its expiration in one round trip
func (c *Client) RPushExpire(ctx context.Context, key string, ttl time.Duration, values ...string) error {
	if !c.IsEnabled() {
		return ErrNotInitialized
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, key, args...)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// LRange returns list elements by index range
func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if !c.IsEnabled() {
		return nil, ErrNotInitialized
	}
	return c.client.LRange(ctx, key, start, stop).Result()
}

// ZRemRangeByScore removes sorted set members scored within [min, max]
func (c *Client) ZRemRangeByScore(ctx context.Context, key, min, max string) error {
	if !c.IsEnabled() {
		return ErrNotInitialized
	}
	return c.client.ZRemRangeByScore(ctx, key, min, max).Err()
}

// ZCard returns the number of members of a sorted set
func (c *Client) ZCard(ctx context.Context, key string) (int64, error) {
	if !c.IsEnabled() {
		return 0, ErrNotInitialized
	}
	return c.client.ZCard(ctx, key).Result()
}

// ZAdd adds a member with the given score to a sorted set
func (c *Client) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if !c.IsEnabled() {
		return ErrNotInitialized
	}
	return c.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

// ZRange returns sorted set members by rank
func (c *Client) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if !c.IsEnabled() {
		return nil, ErrNotInitialized
	}
	return c.client.ZRange(ctx, key, start, stop).Result()
}

// Expire sets a timeout on a key
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if !c.IsEnabled() {
		return ErrNotInitialized
	}
	return c.client.Expire(ctx, key, ttl).Err()
}
