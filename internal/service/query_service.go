package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tomfuertes/murmur/internal/domain"
	"github.com/tomfuertes/murmur/internal/store"
)

// StateSource yields the live state of a room. Satisfied by the room
// coordinator.
type StateSource interface {
	Snapshot(ctx context.Context) (domain.VibeState, int, error)
}

type roomQueryServiceImpl struct {
	state         StateSource
	prompts       store.PromptStore
	roomID        string
	summaryWindow int
	sf            singleflight.Group
}

// NewRoomQueryService creates the read side of the room. summaryWindow
// is how many recent prompts the room summary includes.
func NewRoomQueryService(state StateSource, prompts store.PromptStore, roomID string, summaryWindow int) RoomQueryService {
	if summaryWindow <= 0 {
		summaryWindow = domain.RecentPromptWindow
	}
	return &roomQueryServiceImpl{
		state:         state,
		prompts:       prompts,
		roomID:        roomID,
		summaryWindow: summaryWindow,
	}
}

// GetSummary loads the live state and the recent prompt history in
// parallel.
func (s *roomQueryServiceImpl) GetSummary(ctx context.Context) (*domain.RoomSummary, error) {
	summary := &domain.RoomSummary{}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		state, listeners, err := s.state.Snapshot(gCtx)
		if err != nil {
			return fmt.Errorf("failed to snapshot room: %w", err)
		}
		summary.State = state
		summary.Listeners = listeners
		return nil
	})

	g.Go(func() error {
		resp, err := s.GetRecentPrompts(gCtx, s.summaryWindow)
		if err != nil {
			return err
		}
		summary.Prompts = resp.Prompts
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summary, nil
}

// GetRecentPrompts returns the newest prompt records, newest first.
// Concurrent requests for the same limit collapse into one query.
func (s *roomQueryServiceImpl) GetRecentPrompts(ctx context.Context, limit int) (*domain.RecentPromptsResponse, error) {
	key := fmt.Sprintf("recent:%d", limit)

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.prompts.RecentPrompts(ctx, s.roomID, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get recent prompts: %w", err)
	}

	prompts, ok := result.([]domain.PromptRecord)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}

	return &domain.RecentPromptsResponse{Prompts: prompts}, nil
}
