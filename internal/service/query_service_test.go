package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomfuertes/murmur/internal/domain"
)

type fakeStateSource struct {
	state     domain.VibeState
	listeners int
	err       error
}

func (f *fakeStateSource) Snapshot(context.Context) (domain.VibeState, int, error) {
	if f.err != nil {
		return domain.VibeState{}, 0, f.err
	}
	return f.state, f.listeners, nil
}

type fakePromptStore struct {
	prompts []domain.PromptRecord
	err     error
	gate    chan struct{}

	calls     atomic.Int32
	lastLimit atomic.Int32
}

func (f *fakePromptStore) InsertPrompt(context.Context, string, domain.PromptRecord) error {
	return nil
}

func (f *fakePromptStore) DeletePrompt(context.Context, string, string) error {
	return nil
}

func (f *fakePromptStore) RecentPrompts(_ context.Context, _ string, limit int) ([]domain.PromptRecord, error) {
	f.calls.Add(1)
	f.lastLimit.Store(int32(limit))
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	out := f.prompts
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func TestGetSummary(t *testing.T) {
	state := domain.DefaultVibeState()
	state.Tempo = 64
	prompts := []domain.PromptRecord{
		{ID: "01B", Text: "slower"},
		{ID: "01A", Text: "darker"},
	}
	svc := NewRoomQueryService(
		&fakeStateSource{state: state, listeners: 3},
		&fakePromptStore{prompts: prompts},
		"main",
		domain.RecentPromptWindow,
	)

	summary, err := svc.GetSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 64.0, summary.State.Tempo)
	assert.Equal(t, 3, summary.Listeners)
	assert.Len(t, summary.Prompts, 2)
}

func TestGetSummaryUsesConfiguredWindow(t *testing.T) {
	ps := &fakePromptStore{}
	svc := NewRoomQueryService(&fakeStateSource{state: domain.DefaultVibeState()}, ps, "main", 5)

	_, err := svc.GetSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(5), ps.lastLimit.Load())
}

func TestGetSummaryZeroWindowFallsBack(t *testing.T) {
	ps := &fakePromptStore{}
	svc := NewRoomQueryService(&fakeStateSource{state: domain.DefaultVibeState()}, ps, "main", 0)

	_, err := svc.GetSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(domain.RecentPromptWindow), ps.lastLimit.Load())
}

func TestGetSummaryStateError(t *testing.T) {
	svc := NewRoomQueryService(
		&fakeStateSource{err: errors.New("room closed")},
		&fakePromptStore{},
		"main",
		domain.RecentPromptWindow,
	)

	_, err := svc.GetSummary(context.Background())
	assert.Error(t, err)
}

func TestGetSummaryPromptsError(t *testing.T) {
	svc := NewRoomQueryService(
		&fakeStateSource{state: domain.DefaultVibeState()},
		&fakePromptStore{err: errors.New("query failed")},
		"main",
		domain.RecentPromptWindow,
	)

	_, err := svc.GetSummary(context.Background())
	assert.Error(t, err)
}

func TestGetRecentPrompts(t *testing.T) {
	prompts := []domain.PromptRecord{{ID: "01C"}, {ID: "01B"}, {ID: "01A"}}
	svc := NewRoomQueryService(&fakeStateSource{}, &fakePromptStore{prompts: prompts}, "main", domain.RecentPromptWindow)

	resp, err := svc.GetRecentPrompts(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, resp.Prompts, 2)
	assert.Equal(t, "01C", resp.Prompts[0].ID)
}

func TestGetRecentPromptsError(t *testing.T) {
	svc := NewRoomQueryService(&fakeStateSource{}, &fakePromptStore{err: errors.New("boom")}, "main", domain.RecentPromptWindow)

	_, err := svc.GetRecentPrompts(context.Background(), 5)
	assert.Error(t, err)
}

func TestConcurrentRecentPromptReadsCollapse(t *testing.T) {
	ps := &fakePromptStore{
		prompts: []domain.PromptRecord{{ID: "01A"}},
		gate:    make(chan struct{}),
	}
	svc := NewRoomQueryService(&fakeStateSource{}, ps, "main", domain.RecentPromptWindow)

	const readers = 10
	var started, done sync.WaitGroup
	started.Add(readers)
	done.Add(readers)

	for i := 0; i < readers; i++ {
		go func() {
			defer done.Done()
			started.Done()
			resp, err := svc.GetRecentPrompts(context.Background(), 20)
			assert.NoError(t, err)
			assert.Len(t, resp.Prompts, 1)
		}()
	}

	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(ps.gate)
	done.Wait()

	assert.Equal(t, int32(1), ps.calls.Load(), "identical in-flight reads share one query")
}
