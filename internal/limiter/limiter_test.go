package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucketStore struct {
	buckets map[string][]int64
	getErr  error
	putErr  error
}

func newFakeBucketStore() *fakeBucketStore {
	return &fakeBucketStore{buckets: make(map[string][]int64)}
}

func (f *fakeBucketStore) GetBucket(_ context.Context, key string) ([]int64, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return append([]int64(nil), f.buckets[key]...), nil
}

func (f *fakeBucketStore) PutBucket(_ context.Context, key string, stamps []int64) error {
	if f.putErr != nil {
		return f.putErr
	}
	if len(stamps) == 0 {
		delete(f.buckets, key)
		return nil
	}
	f.buckets[key] = append([]int64(nil), stamps...)
	return nil
}

func newTestLimiter(store BucketStore, at time.Time) *SlidingWindow {
	l := New(store)
	l.now = func() time.Time { return at }
	return l
}

func TestAllowSequenceWithinWindow(t *testing.T) {
	store := newFakeBucketStore()
	base := time.Now()
	window := 60 * time.Second
	ctx := context.Background()

	l := New(store)

	// Three submissions at t+0, t+1, t+2 pass under limit 3.
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		l.now = func() time.Time { return at }
		out := l.Allow(ctx, "src:10.0.0.1", 3, window)
		require.True(t, out.Allowed, "submission %d should pass", i)
	}

	// The fourth at t+3 is denied, retry-after points at t+0 leaving the window.
	at := base.Add(3 * time.Second)
	l.now = func() time.Time { return at }
	out := l.Allow(ctx, "src:10.0.0.1", 3, window)
	require.False(t, out.Allowed)
	assert.Equal(t, 57*time.Second, out.RetryAfter)

	// Once t+0 has left the window, a new submission passes again.
	at = base.Add(window + 500*time.Millisecond)
	l.now = func() time.Time { return at }
	out = l.Allow(ctx, "src:10.0.0.1", 3, window)
	assert.True(t, out.Allowed)
}

func TestDenialDoesNotConsume(t *testing.T) {
	store := newFakeBucketStore()
	base := time.Now()
	ctx := context.Background()
	l := newTestLimiter(store, base)

	for i := 0; i < 2; i++ {
		require.True(t, l.Allow(ctx, "k", 2, time.Minute).Allowed)
	}

	// Repeated denials must not extend the bucket.
	for i := 0; i < 5; i++ {
		require.False(t, l.Allow(ctx, "k", 2, time.Minute).Allowed)
	}
	assert.Len(t, store.buckets["k"], 2)
}

func TestExpiredEntriesCompacted(t *testing.T) {
	store := newFakeBucketStore()
	base := time.Now()
	ctx := context.Background()

	store.buckets["k"] = []int64{
		base.Add(-2 * time.Minute).UnixMilli(),
		base.Add(-90 * time.Second).UnixMilli(),
		base.Add(-10 * time.Second).UnixMilli(),
	}

	l := newTestLimiter(store, base)
	out := l.Allow(ctx, "k", 2, time.Minute)

	require.True(t, out.Allowed, "expired entries must not count against the limit")
	assert.Len(t, store.buckets["k"], 2, "bucket holds the surviving entry plus the new one")
}

func TestFailOpenOnReadError(t *testing.T) {
	store := newFakeBucketStore()
	store.getErr = errors.New("connection refused")

	l := newTestLimiter(store, time.Now())
	out := l.Allow(context.Background(), "k", 1, time.Minute)

	assert.True(t, out.Allowed)
}

func TestFailOpenOnWriteError(t *testing.T) {
	store := newFakeBucketStore()
	store.putErr = errors.New("disk full")

	l := newTestLimiter(store, time.Now())
	out := l.Allow(context.Background(), "k", 1, time.Minute)

	assert.True(t, out.Allowed)
}

func TestNonPositiveLimitDisablesCheck(t *testing.T) {
	store := newFakeBucketStore()
	l := newTestLimiter(store, time.Now())

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow(context.Background(), "k", 0, time.Minute).Allowed)
	}
	assert.Empty(t, store.buckets, "disabled scope records nothing")
}

func TestKeysAreIndependent(t *testing.T) {
	store := newFakeBucketStore()
	ctx := context.Background()
	l := newTestLimiter(store, time.Now())

	require.True(t, l.Allow(ctx, "src:a", 1, time.Minute).Allowed)
	require.False(t, l.Allow(ctx, "src:a", 1, time.Minute).Allowed)
	assert.True(t, l.Allow(ctx, "src:b", 1, time.Minute).Allowed)
}
