// Package limiter implements a sliding-window rate limiter over durable
// timestamp buckets.
package limiter

import (
	"context"
	"time"

	"github.com/tomfuertes/murmur/pkg/log"
)

// BucketStore persists rate-limit buckets. A bucket is the ascending list
// of accept timestamps (unix milliseconds) for one key. Writing an empty
// bucket must remove the key entirely.
type BucketStore interface {
	GetBucket(ctx context.Context, key string) ([]int64, error)
	PutBucket(ctx context.Context, key string, stamps []int64) error
}

// Outcome is the result of a limiter check.
type Outcome struct {
	Allowed    bool
	RetryAfter time.Duration
}

// SlidingWindow counts events per key inside a moving window. The store
// is consulted on every check; a storage read failure allows the request
// rather than blocking listeners on degraded infrastructure.
type SlidingWindow struct {
	store BucketStore
	now   func() time.Time
}

// New creates a sliding-window limiter backed by the given store.
func New(store BucketStore) *SlidingWindow {
	return &SlidingWindow{store: store, now: time.Now}
}

// Allow checks and records one event for key. A non-positive limit
// disables the check. Denials report how long until the oldest surviving
// event leaves the window.
func (l *SlidingWindow) Allow(ctx context.Context, key string, limit int, window time.Duration) Outcome {
	if limit <= 0 {
		return Outcome{Allowed: true}
	}

	logger := log.Ctx(ctx)

	stamps, err := l.store.GetBucket(ctx, key)
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldScope, key).Msg("rate bucket read failed, allowing")
		return Outcome{Allowed: true}
	}

	nowMs := l.now().UnixMilli()
	cutoff := nowMs - window.Milliseconds()

	kept := stamps[:0]
	for _, ts := range stamps {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		retry := time.Duration(kept[0]+window.Milliseconds()-nowMs) * time.Millisecond
		// Persist the compacted bucket without recording the denied event.
		if len(kept) != len(stamps) {
			if err := l.store.PutBucket(ctx, key, kept); err != nil {
				logger.Warn().Err(err).Str(log.FieldScope, key).Msg("rate bucket compaction failed")
			}
		}
		return Outcome{Allowed: false, RetryAfter: retry}
	}

	kept = append(kept, nowMs)
	if err := l.store.PutBucket(ctx, key, kept); err != nil {
		logger.Warn().Err(err).Str(log.FieldScope, key).Msg("rate bucket write failed, allowing")
	}
	return Outcome{Allowed: true}
}
