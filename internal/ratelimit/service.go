package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"callbridge/internal/observability"

	"github.com/google/uuid"
)

const (
	window    = time.Minute
	keyPrefix = "rl:"
	// local windows are swept once this many keys are tracked
	sweepThreshold = 1024
)

// WindowStore is the sorted set subset of the Redis client
type WindowStore interface {
	IsEnabled() bool
	ZRemRangeByScore(ctx context.Context, key, min, max string) error
	ZCard(ctx context.Context, key string) (int64, error)
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed      bool      `json:"allowed"`
	Limit        int       `json:"limit"`
	Remaining    int       `json:"remaining"`
	ResetAt      time.Time `json:"reset_at"`
	RetryAfterMs int       `json:"retry_after_ms,omitempty"`
}

// Service limits how often a client may start calls within a one minute
// sliding window. Redis is used when enabled so every replica shares the
// window; otherwise, or when Redis fails, windows are kept in process.
type Service struct {
	redis  WindowStore
	limit  int
	logger *observability.Logger
	now    func() time.Time

	mu    sync.Mutex
	local map[string][]time.Time
}

// NewService creates a rate limiter allowing limit requests per minute per
// key. A limit of zero or less disables limiting.
func NewService(redis WindowStore, limit int, logger *observability.Logger) *Service {
	return &Service{
		redis:  redis,
		limit:  limit,
		logger: logger,
		now:    time.Now,
		local:  make(map[string][]time.Time),
	}
}

func (s *Service) Enabled() bool {
	return s.limit > 0
}

// Check records a request for key and reports whether it is allowed
func (s *Service) Check(ctx context.Context, key string) (Result, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "rate_limit_key", Value: key},
		observability.Field{Key: "rate_limit", Value: s.limit},
	)

	if s.redis != nil && s.redis.IsEnabled() {
		result, err := s.checkRedis(ctx, key)
		if err == nil {
			return result, nil
		}
		s.logger.WarnWithError(ctx, "Redis rate limit check failed, falling back to local window", err)
	}
	return s.checkLocal(key), nil
}

// checkRedis keeps request timestamps in a sorted set scored by milliseconds
func (s *Service) checkRedis(ctx context.Context, key string) (Result, error) {
	key = keyPrefix + key
	now := s.now()
	nowMs := now.UnixMilli()
	windowStartMs := now.Add(-window).UnixMilli()

	if err := s.redis.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStartMs, 10)); err != nil {
		return Result{}, fmt.Errorf("failed to remove old entries: %w", err)
	}

	count, err := s.redis.ZCard(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("failed to count requests: %w", err)
	}

	if int(count) >= s.limit {
		oldest, err := s.redis.ZRange(ctx, key, 0, 0)
		if err != nil || len(oldest) == 0 {
			return s.denied(now, now), nil
		}
		msText, _, _ := strings.Cut(oldest[0], "-")
		oldestMs, err := strconv.ParseInt(msText, 10, 64)
		if err != nil {
			return s.denied(now, now), nil
		}
		return s.denied(now, time.UnixMilli(oldestMs)), nil
	}

	// members carry a unique suffix so requests in the same millisecond all count
	member := fmt.Sprintf("%d-%s", nowMs, uuid.NewString())
	if err := s.redis.ZAdd(ctx, key, float64(nowMs), member); err != nil {
		return Result{}, fmt.Errorf("failed to add request: %w", err)
	}

	if err := s.redis.Expire(ctx, key, 2*window); err != nil {
		s.logger.WarnWithError(ctx, "failed to set expiration on rate limit key", err)
	}

	return Result{
		Allowed:   true,
		Limit:     s.limit,
		Remaining: s.limit - int(count) - 1,
		ResetAt:   now.Add(window),
	}, nil
}

func (s *Service) checkLocal(key string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if len(s.local) >= sweepThreshold {
		for k, hits := range s.local {
			if len(hits) == 0 || now.Sub(hits[len(hits)-1]) >= window {
				delete(s.local, k)
			}
		}
	}

	hits := s.local[key]
	cut := 0
	for cut < len(hits) && now.Sub(hits[cut]) >= window {
		cut++
	}
	hits = hits[cut:]

	if len(hits) >= s.limit {
		s.local[key] = hits
		return s.denied(now, hits[0])
	}

	s.local[key] = append(hits, now)
	return Result{
		Allowed:   true,
		Limit:     s.limit,
		Remaining: s.limit - len(hits) - 1,
		ResetAt:   now.Add(window),
	}
}

func (s *Service) denied(now, oldest time.Time) Result {
	resetAt := oldest.Add(window)
	retryAfter := resetAt.Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return Result{
		Allowed:      false,
		Limit:        s.limit,
		Remaining:    0,
		ResetAt:      resetAt,
		RetryAfterMs: int(retryAfter.Milliseconds()),
	}
}
