package store

import (
	"time"

	"github.com/tomfuertes/murmur/internal/domain"
	"github.com/tomfuertes/murmur/pkg/database"
)

// VibeStateModel is the GORM model for the vibe_states table. One row
// per room.
type VibeStateModel struct {
	RoomID       string               `gorm:"type:varchar(64);primaryKey"`
	Tempo        float64              `gorm:"not null"`
	ReverbMix    float64              `gorm:"not null"`
	Density      float64              `gorm:"not null"`
	Brightness   float64              `gorm:"not null"`
	FilterCutoff float64              `gorm:"not null"`
	Key          string               `gorm:"type:varchar(4);not null"`
	Mode         string               `gorm:"type:varchar(16);not null"`
	Instruments  database.StringArray `gorm:"type:text"`
	Seed         int                  `gorm:"not null"`
	Description  string               `gorm:"type:varchar(200)"`
	UpdatedAt    time.Time            `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for VibeStateModel.
func (VibeStateModel) TableName() string {
	return "vibe_states"
}

// ToDomain converts VibeStateModel to a domain VibeState.
func (m *VibeStateModel) ToDomain() domain.VibeState {
	return domain.VibeState{
		Tempo:        m.Tempo,
		ReverbMix:    m.ReverbMix,
		Density:      m.Density,
		Brightness:   m.Brightness,
		FilterCutoff: m.FilterCutoff,
		Key:          m.Key,
		Mode:         m.Mode,
		Instruments:  []string(m.Instruments),
		Seed:         m.Seed,
		Description:  m.Description,
	}
}

// StateToModel converts a domain VibeState to its GORM model.
func StateToModel(roomID string, s domain.VibeState) *VibeStateModel {
	return &VibeStateModel{
		RoomID:       roomID,
		Tempo:        s.Tempo,
		ReverbMix:    s.ReverbMix,
		Density:      s.Density,
		Brightness:   s.Brightness,
		FilterCutoff: s.FilterCutoff,
		Key:          s.Key,
		Mode:         s.Mode,
		Instruments:  database.StringArray(s.Instruments),
		Seed:         s.Seed,
		Description:  s.Description,
	}
}

// PromptModel is the GORM model for the prompts table.
type PromptModel struct {
	ID        string    `gorm:"type:varchar(26);primaryKey"`
	RoomID    string    `gorm:"type:varchar(64);index:idx_prompts_room_created;not null"`
	Author    string    `gorm:"type:varchar(32);not null"`
	Text      string    `gorm:"type:varchar(280);not null"`
	CreatedAt time.Time `gorm:"index:idx_prompts_room_created"`
}

// TableName specifies the table name for PromptModel.
func (PromptModel) TableName() string {
	return "prompts"
}

// ToDomain converts PromptModel to a domain PromptRecord.
func (m *PromptModel) ToDomain() domain.PromptRecord {
	return domain.PromptRecord{
		ID:        m.ID,
		Author:    m.Author,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

// PromptToModel converts a domain PromptRecord to its GORM model.
func PromptToModel(roomID string, rec domain.PromptRecord) *PromptModel {
	return &PromptModel{
		ID:        rec.ID,
		RoomID:    roomID,
		Author:    rec.Author,
		Text:      rec.Text,
		CreatedAt: rec.CreatedAt,
	}
}

// RateBucketModel is the GORM model for the rate_buckets table.
type RateBucketModel struct {
	BucketKey  string              `gorm:"type:varchar(128);primaryKey"`
	Timestamps database.Int64Array `gorm:"type:text"`
	UpdatedAt  time.Time           `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for RateBucketModel.
func (RateBucketModel) TableName() string {
	return "rate_buckets"
}
