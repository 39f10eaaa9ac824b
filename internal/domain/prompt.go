package domain

import (
	"strings"
	"time"
)

// Prompt limits.
const (
	MaxPromptLen  = 280
	MaxAuthorLen  = 32
	DefaultAuthor = "anonymous"

	// RecentPromptWindow is how many accepted prompts the room keeps
	// in its visible history, most recent first.
	RecentPromptWindow = 20
)

// PromptRecord is one accepted listener prompt. It is persisted
// provisionally before moderation and deleted again if the prompt is
// rejected, so the stored log only ever contains prompts that survived
// the pipeline or are still in flight.
type PromptRecord struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeAuthor trims, defaults, and truncates a submitted author name.
func NormalizeAuthor(author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		return DefaultAuthor
	}
	return truncate(author, MaxAuthorLen)
}

// Stage identifies where a prompt sits in the processing pipeline.
// Stages advance strictly forward; every prompt terminates in
// StageApplied or StageRejected.
type Stage string

const (
	StageReceived              Stage = "received"
	StageRateChecked           Stage = "rate_checked"
	StageSanitized             Stage = "sanitized"
	StagePrefiltered           Stage = "prefiltered"
	StageModerationPending     Stage = "moderation_pending"
	StageModerated             Stage = "moderated"
	StageInterpretationPending Stage = "interpretation_pending"
	StageApplied               Stage = "applied"
	StageRejected              Stage = "rejected"
)
