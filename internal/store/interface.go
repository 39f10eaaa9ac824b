package store

import (
	"context"
	"errors"

	"github.com/tomfuertes/murmur/internal/domain"
)

var (
	ErrStateNotFound = errors.New("vibe state not found")
)

// StateStore persists the single vibe state row per room. Writes are
// last-write-wins; the coordinator's single-writer discipline is what
// keeps them ordered.
type StateStore interface {
	LoadState(ctx context.Context, roomID string) (domain.VibeState, error)
	SaveState(ctx context.Context, roomID string, state domain.VibeState) error
}

// PromptStore persists the accepted-prompt log.
type PromptStore interface {
	InsertPrompt(ctx context.Context, roomID string, rec domain.PromptRecord) error
	DeletePrompt(ctx context.Context, roomID, id string) error
	RecentPrompts(ctx context.Context, roomID string, limit int) ([]domain.PromptRecord, error)
}

// BucketStore persists rate-limit buckets keyed by limiter scope.
// Writing an empty bucket removes the key.
type BucketStore interface {
	GetBucket(ctx context.Context, key string) ([]int64, error)
	PutBucket(ctx context.Context, key string, stamps []int64) error
	DeleteBucket(ctx context.Context, key string) error
}

// Store is everything the room persists.
type Store interface {
	StateStore
	PromptStore
	BucketStore
}
