package callcontext

import (
	"context"
	"errors"
	"testing"
	"time"

	"callbridge/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	want := CallContext{CustomerName: "Dana Reyes", PolicyNumber: "PN-77"}
	policy := Policy{MaxAttempts: 5, Interval: time.Millisecond}

	tests := []struct {
		name    string
		keys    []string
		setup   func(store *MockStore)
		wantKey string
		wantErr error
	}{
		{
			name: "found under call id on first attempt",
			keys: []string{"CA1", "temp_1"},
			setup: func(store *MockStore) {
				store.EXPECT().Get(gomock.Any(), "CA1").Return(want, nil).Times(1)
			},
			wantKey: "CA1",
		},
		{
			name: "falls through to correlation key",
			keys: []string{"CA1", "temp_1"},
			setup: func(store *MockStore) {
				store.EXPECT().Get(gomock.Any(), "CA1").Return(CallContext{}, ErrNotFound).Times(1)
				store.EXPECT().Get(gomock.Any(), "temp_1").Return(want, nil).Times(1)
			},
			wantKey: "temp_1",
		},
		{
			name: "appears on third attempt",
			keys: []string{"CA1"},
			setup: func(store *MockStore) {
				gomock.InOrder(
					store.EXPECT().Get(gomock.Any(), "CA1").Return(CallContext{}, ErrNotFound).Times(2),
					store.EXPECT().Get(gomock.Any(), "CA1").Return(want, nil).Times(1),
				)
			},
			wantKey: "CA1",
		},
		{
			name: "gives up after exactly five attempts",
			keys: []string{"CA1", ""},
			setup: func(store *MockStore) {
				store.EXPECT().Get(gomock.Any(), "CA1").Return(CallContext{}, ErrNotFound).Times(5)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "store errors count as a miss",
			keys: []string{"CA1"},
			setup: func(store *MockStore) {
				store.EXPECT().Get(gomock.Any(), "CA1").Return(CallContext{}, errors.New("redis down")).Times(5)
			},
			wantErr: ErrNotFound,
		},
		{
			name:    "no usable keys",
			keys:    []string{"", ""},
			setup:   func(store *MockStore) {},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			store := NewMockStore(ctrl)
			tt.setup(store)

			resolver := NewResolver(store, policy, observability.NewLogger())
			got, key, err := resolver.Resolve(context.Background(), tt.keys...)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, want, got)
		})
	}
}

func TestResolver_ResolveCancelled(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	store.EXPECT().Get(gomock.Any(), "CA1").Return(CallContext{}, ErrNotFound).Times(1)

	resolver := NewResolver(store, Policy{MaxAttempts: 5, Interval: time.Hour}, observability.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, _, err := resolver.Resolve(ctx, "CA1")
	require.ErrorIs(t, err, context.Canceled)
}

func TestDefaultPolicy(t *testing.T) {
	t.Parallel()

	policy := DefaultPolicy()
	assert.Equal(t, 5, policy.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, policy.Interval)
}

func TestResolver_ExpiredSealedTokenIsAMiss(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store, err := NewSealedStore("s3cret")
	require.NoError(t, err)
	store.now = clock.Now

	token, err := store.Issue(context.Background(), sample, time.Minute)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	core, logs := observer.New(zapcore.WarnLevel)
	resolver := NewResolver(store, Policy{MaxAttempts: 3, Interval: time.Millisecond}, observability.NewLoggerWithCore(core))

	_, _, err = resolver.Resolve(context.Background(), "CA1", token)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, logs.Len(), "expired tokens are not lookup failures")
}
