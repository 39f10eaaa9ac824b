package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tomfuertes/murmur/internal/domain"
	"github.com/tomfuertes/murmur/pkg/database"
	"github.com/tomfuertes/murmur/pkg/log"
)

// GormStore implements Store on a relational database through GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GORM-backed store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates or updates the murmur tables.
func (s *GormStore) AutoMigrate() error {
	return database.AutoMigrate(s.db,
		&VibeStateModel{},
		&PromptModel{},
		&RateBucketModel{},
	)
}

// LoadState retrieves the room's vibe state.
func (s *GormStore) LoadState(ctx context.Context, roomID string) (domain.VibeState, error) {
	l := log.Ctx(ctx)

	var model VibeStateModel
	result := s.db.WithContext(ctx).First(&model, "room_id = ?", roomID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return domain.VibeState{}, ErrStateNotFound
		}
		l.Error().Err(result.Error).Str(log.FieldRoomID, roomID).Msg("failed to load vibe state")
		return domain.VibeState{}, result.Error
	}
	return model.ToDomain(), nil
}

// SaveState writes the room's vibe state, last write wins.
func (s *GormStore) SaveState(ctx context.Context, roomID string, state domain.VibeState) error {
	l := log.Ctx(ctx)

	model := StateToModel(roomID, state)
	if err := s.db.WithContext(ctx).Save(model).Error; err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to save vibe state")
		return err
	}
	return nil
}

// InsertPrompt writes a provisional prompt record.
func (s *GormStore) InsertPrompt(ctx context.Context, roomID string, rec domain.PromptRecord) error {
	l := log.Ctx(ctx)

	if err := s.db.WithContext(ctx).Create(PromptToModel(roomID, rec)).Error; err != nil {
		l.Error().Err(err).Str(log.FieldPromptID, rec.ID).Msg("failed to insert prompt")
		return err
	}
	return nil
}

// DeletePrompt removes a prompt record. Deleting an already-absent
// record is not an error.
func (s *GormStore) DeletePrompt(ctx context.Context, roomID, id string) error {
	l := log.Ctx(ctx)

	result := s.db.WithContext(ctx).Delete(&PromptModel{}, "id = ? AND room_id = ?", id, roomID)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldPromptID, id).Msg("failed to delete prompt")
		return result.Error
	}
	return nil
}

// RecentPrompts returns up to limit accepted prompts, most recent first.
func (s *GormStore) RecentPrompts(ctx context.Context, roomID string, limit int) ([]domain.PromptRecord, error) {
	l := log.Ctx(ctx)

	if limit <= 0 {
		limit = domain.RecentPromptWindow
	}

	var models []PromptModel
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to load recent prompts")
		return nil, err
	}

	records := make([]domain.PromptRecord, len(models))
	for i, m := range models {
		records[i] = m.ToDomain()
	}
	return records, nil
}

// GetBucket loads a rate bucket. A missing bucket is an empty bucket.
func (s *GormStore) GetBucket(ctx context.Context, key string) ([]int64, error) {
	var model RateBucketModel
	result := s.db.WithContext(ctx).First(&model, "bucket_key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return []int64(model.Timestamps), nil
}

// PutBucket writes a rate bucket, removing the row when the bucket
// compacted down to nothing.
func (s *GormStore) PutBucket(ctx context.Context, key string, stamps []int64) error {
	if len(stamps) == 0 {
		return s.DeleteBucket(ctx, key)
	}
	model := RateBucketModel{BucketKey: key, Timestamps: database.Int64Array(stamps)}
	return s.db.WithContext(ctx).Save(&model).Error
}

// DeleteBucket removes a rate bucket.
func (s *GormStore) DeleteBucket(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&RateBucketModel{}, "bucket_key = ?", key).Error
}
