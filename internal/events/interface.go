package events

import (
	"context"
	"time"

	"github.com/tomfuertes/murmur/internal/domain"
)

// UpdateEvent is published whenever a prompt applies and the room state
// changes. Downstream consumers (archival, analytics, renderers) tail
// the topic instead of holding a WebSocket open.
type UpdateEvent struct {
	RoomID    string              `json:"room_id"`
	Prompt    domain.PromptRecord `json:"prompt"`
	State     domain.VibeState    `json:"state"`
	AppliedAt time.Time           `json:"applied_at"`
}

// Producer publishes update events. Publishing is fire-and-forget from
// the room's point of view: failures are logged, never surfaced to
// listeners.
type Producer interface {
	PublishUpdate(ctx context.Context, ev *UpdateEvent) error
	Close() error
}
