package service

import (
	"context"

	"github.com/tomfuertes/murmur/internal/domain"
)

// RoomQueryService is the read-only view of a room used by the REST
// surface.
type RoomQueryService interface {
	GetSummary(ctx context.Context) (*domain.RoomSummary, error)
	GetRecentPrompts(ctx context.Context, limit int) (*domain.RecentPromptsResponse, error)
}
