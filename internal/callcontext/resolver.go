package callcontext

import (
	"context"
	"errors"
	"fmt"
	"time"

	"callbridge/internal/observability"
)

// Policy bounds how long resolution waits for a context to appear.
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultPolicy retries five times, 500ms apart.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, Interval: 500 * time.Millisecond}
}

// Resolver looks a context up under several candidate keys with a bounded
// fixed-interval retry.
type Resolver struct {
	store  Store
	policy Policy
	logger *observability.Logger
}

func NewResolver(store Store, policy Policy, logger *observability.Logger) *Resolver {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Resolver{store: store, policy: policy, logger: logger}
}

// Resolve tries every non-empty key in order on each attempt and returns the
// context with the key it was found under. It gives up with ErrNotFound after
// MaxAttempts, or with the context error when ctx ends first.
func (r *Resolver) Resolve(ctx context.Context, keys ...string) (CallContext, string, error) {
	candidates := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != "" {
			candidates = append(candidates, key)
		}
	}
	if len(candidates) == 0 {
		return CallContext{}, "", fmt.Errorf("%w: no lookup keys", ErrNotFound)
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		for _, key := range candidates {
			cc, err := r.store.Get(ctx, key)
			if err == nil {
				return cc, key, nil
			}
			if !errors.Is(err, ErrNotFound) {
				r.logger.WarnWithError(observability.WithFields(ctx,
					observability.Field{Key: "context_key", Value: key},
					observability.Field{Key: "attempt", Value: attempt},
				), "call context lookup failed, treating as miss", err)
			}
		}

		if attempt == r.policy.MaxAttempts {
			break
		}
		if timer == nil {
			timer = time.NewTimer(r.policy.Interval)
		} else {
			timer.Reset(r.policy.Interval)
		}
		select {
		case <-ctx.Done():
			return CallContext{}, "", ctx.Err()
		case <-timer.C:
		}
	}

	return CallContext{}, "", fmt.Errorf("%w after %d attempts", ErrNotFound, r.policy.MaxAttempts)
}
