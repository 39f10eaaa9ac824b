// Package room runs the single-writer coordinator that owns a room's
// vibe state, its listener registry, and the prompt pipeline.
package room

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/tomfuertes/murmur/internal/audit"
	"github.com/tomfuertes/murmur/internal/config"
	"github.com/tomfuertes/murmur/internal/domain"
	"github.com/tomfuertes/murmur/internal/events"
	"github.com/tomfuertes/murmur/internal/hub"
	"github.com/tomfuertes/murmur/internal/limiter"
	"github.com/tomfuertes/murmur/internal/oracle"
	"github.com/tomfuertes/murmur/internal/sanitize"
	"github.com/tomfuertes/murmur/internal/store"
	"github.com/tomfuertes/murmur/internal/verify"
	"github.com/tomfuertes/murmur/pkg/log"
)

// Limiter scope keys.
const (
	globalBucketKey    = "global:prompts"
	sourceBucketPrefix = "src:"
)

const genericFailure = "something went wrong"

var (
	// ErrRoomFull means the listener cap is reached.
	ErrRoomFull = errors.New("room at capacity")
	// ErrClosed means the coordinator has shut down.
	ErrClosed = errors.New("room is closed")
)

// RateLimitError reports which scope tripped and how long to wait.
type RateLimitError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (%s scope), retry in %s", e.Scope, e.RetryAfter.Round(time.Second))
}

// Moderator decides whether a prompt may influence the room.
type Moderator interface {
	Check(ctx context.Context, text string) bool
}

// Interpreter turns a prompt into a parameter proposal.
type Interpreter interface {
	Interpret(ctx context.Context, text string, current domain.VibeState) oracle.Interpretation
}

// Submission is one prompt as it arrives from a listener.
type Submission struct {
	Text     string
	Author   string
	Token    string
	SourceIP string
}

// Deps are the coordinator's collaborators.
type Deps struct {
	Store       store.Store
	Limiter     *limiter.SlidingWindow
	Sanitizer   *sanitize.Sanitizer
	Moderator   Moderator
	Interpreter Interpreter
	Verifier    verify.Verifier
	Producer    events.Producer
}

// Coordinator serializes every state and registry mutation through a
// single goroutine. Commands enter through an unbuffered inbox; the only
// work that happens off that goroutine is bot verification and the two
// oracle calls, whose continuations re-enter the inbox. Because
// pipelines for different prompts overlap, broadcasts can interleave in
// oracle completion order, but each applied delta is computed against
// the state current at its apply and persisted before anyone hears
// about it.
type Coordinator struct {
	cfg    config.RoomConfig
	limits config.RateLimitConfig
	deps   Deps

	registry *hub.Registry
	state    domain.VibeState

	inbox    chan func()
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once

	logger zerolog.Logger
}

// New creates a coordinator for one room. Call Start before use.
func New(cfg config.RoomConfig, limits config.RateLimitConfig, deps Deps) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		limits:   limits,
		deps:     deps,
		registry: hub.NewRegistry(),
		inbox:    make(chan func()),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		logger:   log.Component("coordinator").With().Str(log.FieldRoomID, cfg.ID).Logger(),
	}
}

// Start loads or seeds the room's durable state and starts the command
// loop. Seeding happens only when no state row exists, so restarting the
// room is a no-op.
func (c *Coordinator) Start(ctx context.Context) error {
	state, err := c.deps.Store.LoadState(ctx, c.cfg.ID)
	if errors.Is(err, store.ErrStateNotFound) {
		state = domain.DefaultVibeState()
		if err := c.deps.Store.SaveState(ctx, c.cfg.ID, state); err != nil {
			return fmt.Errorf("failed to seed vibe state: %w", err)
		}
		c.logger.Info().Msg("seeded default vibe state")
	} else if err != nil {
		return fmt.Errorf("failed to load vibe state: %w", err)
	}

	c.state = state
	go c.run()

	c.logger.Info().
		Float64("tempo", state.Tempo).
		Str("key", state.Key).
		Str("mode", state.Mode).
		Msg("room coordinator started")
	return nil
}

// Stop shuts the command loop down after draining queued commands and
// closes every listener connection.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.done) })
	select {
	case <-c.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) run() {
	for {
		select {
		case cmd := <-c.inbox:
			cmd()
		case <-c.done:
			for {
				select {
				case cmd := <-c.inbox:
					cmd()
				default:
					c.registry.CloseAll()
					close(c.stopped)
					return
				}
			}
		}
	}
}

// do runs fn on the coordinator goroutine and waits for it to finish.
// The inbox is unbuffered, so a successful send means the loop is
// executing fn right now and will complete it.
func (c *Coordinator) do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	select {
	case c.inbox <- func() { fn(); close(ran) }:
		<-ran
		return nil
	case <-c.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect admits a listener, sends it the full current state, and
// registers it for broadcasts. At the listener cap the connection is
// refused without side effects.
func (c *Coordinator) Connect(ctx context.Context, client *hub.Client) error {
	var connErr error
	err := c.do(ctx, func() {
		if c.registry.Count() >= c.cfg.MaxListeners {
			audit.Log(ctx, audit.ActionRoomFull, client.ID, "connection refused at listener cap")
			connErr = ErrRoomFull
			return
		}
		c.registry.Add(client)
		client.SendMessage(&domain.VibeStateMessage{
			Type:      domain.MsgTypeVibeState,
			State:     c.state.Clone(),
			Listeners: c.registry.Count(),
		})
		audit.Log(ctx, audit.ActionConnect, client.ID, "listener connected")
		c.logger.Debug().
			Str(log.FieldConnID, client.ID).
			Int(log.FieldListeners, c.registry.Count()).
			Msg("listener connected")
	})
	if err != nil {
		return err
	}
	return connErr
}

// Disconnect removes a listener. Unknown clients are ignored so the
// disconnect path can race a slow-client drop.
func (c *Coordinator) Disconnect(client *hub.Client) {
	err := c.do(context.Background(), func() {
		if c.registry.Remove(client.ID) {
			audit.Log(context.Background(), audit.ActionDisconnect, client.ID, "listener disconnected")
			c.logger.Debug().
				Str(log.FieldConnID, client.ID).
				Int(log.FieldListeners, c.registry.Count()).
				Msg("listener disconnected")
		}
	})
	if err != nil && !errors.Is(err, ErrClosed) {
		c.logger.Warn().Err(err).Msg("disconnect not processed")
	}
}

// Snapshot returns the current state and exact listener count.
func (c *Coordinator) Snapshot(ctx context.Context) (domain.VibeState, int, error) {
	var (
		state     domain.VibeState
		listeners int
	)
	err := c.do(ctx, func() {
		state = c.state.Clone()
		listeners = c.registry.Count()
	})
	if err != nil {
		return domain.VibeState{}, 0, err
	}
	return state, listeners, nil
}

// SubmitPrompt runs the synchronous half of the prompt lifecycle:
// verification, rate limiting, sanitizing, prefiltering, and the
// provisional record write. On success the asynchronous oracle pipeline
// is already scheduled and the caller gets the accepted record back.
func (c *Coordinator) SubmitPrompt(ctx context.Context, sub Submission) (domain.PromptRecord, error) {
	// Verification happens before anything else and consumes nothing.
	if err := c.deps.Verifier.Verify(ctx, sub.Token, sub.SourceIP); err != nil {
		return domain.PromptRecord{}, err
	}

	var (
		rec      domain.PromptRecord
		admitErr error
	)
	if err := c.do(ctx, func() { rec, admitErr = c.admit(ctx, sub) }); err != nil {
		return domain.PromptRecord{}, err
	}
	if admitErr != nil {
		return domain.PromptRecord{}, admitErr
	}
	return rec, nil
}

// admit runs on the coordinator goroutine.
func (c *Coordinator) admit(ctx context.Context, sub Submission) (domain.PromptRecord, error) {
	logger := log.Ctx(ctx)
	c.stage(logger, "", domain.StageReceived)

	out := c.deps.Limiter.Allow(ctx, globalBucketKey, c.limits.GlobalLimit, c.limits.GlobalWindow)
	if !out.Allowed {
		audit.LogWithDetail(ctx, audit.ActionRateLimited, "", "global", "prompt rate limited")
		return domain.PromptRecord{}, &RateLimitError{Scope: "global", RetryAfter: out.RetryAfter}
	}
	out = c.deps.Limiter.Allow(ctx, sourceBucketPrefix+sub.SourceIP, c.limits.SourceLimit, c.limits.SourceWindow)
	if !out.Allowed {
		audit.LogWithDetail(ctx, audit.ActionRateLimited, "", "source", "prompt rate limited")
		return domain.PromptRecord{}, &RateLimitError{Scope: "source", RetryAfter: out.RetryAfter}
	}
	c.stage(logger, "", domain.StageRateChecked)

	clean, err := c.deps.Sanitizer.Clean(sub.Text)
	if err != nil {
		audit.Log(ctx, audit.ActionPromptBlocked, "", "prompt failed sanitizing")
		return domain.PromptRecord{}, err
	}
	c.stage(logger, "", domain.StageSanitized)

	if err := c.deps.Sanitizer.CheckDenylist(clean); err != nil {
		audit.Log(ctx, audit.ActionPromptBlocked, "", "prompt matched denylist")
		return domain.PromptRecord{}, err
	}
	c.stage(logger, "", domain.StagePrefiltered)

	id, err := newPromptID()
	if err != nil {
		return domain.PromptRecord{}, err
	}
	rec := domain.PromptRecord{
		ID:        id,
		Author:    domain.NormalizeAuthor(sub.Author),
		Text:      clean,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.deps.Store.InsertPrompt(ctx, c.cfg.ID, rec); err != nil {
		return domain.PromptRecord{}, fmt.Errorf("failed to persist prompt: %w", err)
	}

	audit.Log(ctx, audit.ActionPromptAccepted, rec.ID, "prompt accepted")
	go c.runPipeline(rec)
	return rec, nil
}

// runPipeline is the asynchronous half of the lifecycle: moderation,
// interpretation, then apply or reject back on the coordinator
// goroutine. The context is detached on purpose; an in-flight oracle
// call is never cancelled by the submitter going away.
func (c *Coordinator) runPipeline(rec domain.PromptRecord) {
	logger := c.logger.With().Str(log.FieldPromptID, rec.ID).Logger()
	ctx := log.WithLogger(context.Background(), logger)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("prompt pipeline panicked")
			c.finishReject(ctx, rec, genericFailure)
		}
	}()

	c.stage(logger, rec.ID, domain.StageModerationPending)
	safe := c.deps.Moderator.Check(ctx, rec.Text)
	c.stage(logger, rec.ID, domain.StageModerated)
	if !safe {
		c.finishReject(ctx, rec, "prompt was declined by moderation")
		return
	}

	c.stage(logger, rec.ID, domain.StageInterpretationPending)
	var current domain.VibeState
	if err := c.do(ctx, func() { current = c.state.Clone() }); err != nil {
		logger.Warn().Err(err).Msg("room closed before interpretation")
		return
	}
	interp := c.deps.Interpreter.Interpret(ctx, rec.Text, current)

	c.finishApply(ctx, rec, interp)
}

// finishApply re-enters the coordinator goroutine to fold the proposal
// into the state. The new state is persisted before anyone hears about
// it; a persistence failure downgrades the prompt to a rejection.
func (c *Coordinator) finishApply(ctx context.Context, rec domain.PromptRecord, interp oracle.Interpretation) {
	logger := log.Ctx(ctx)

	err := c.do(ctx, func() {
		next := c.state.Clone()
		changed := next.ApplyDeltas(interp.Deltas, interp.Description)

		if err := c.deps.Store.SaveState(ctx, c.cfg.ID, next); err != nil {
			logger.Error().Err(err).Msg("failed to persist applied state")
			c.reject(ctx, rec, genericFailure)
			return
		}
		c.state = next

		c.stage(logger, rec.ID, domain.StageApplied)
		audit.LogWithDetail(ctx, audit.ActionPromptApplied, rec.ID, fmt.Sprintf("changed=%v", changed), "prompt applied")

		c.registry.Broadcast(&domain.VibeUpdatedMessage{
			Type:   domain.MsgTypeVibeUpdated,
			State:  c.state.Clone(),
			Prompt: rec,
		})

		if err := c.deps.Producer.PublishUpdate(ctx, &events.UpdateEvent{
			RoomID:    c.cfg.ID,
			Prompt:    rec,
			State:     c.state.Clone(),
			AppliedAt: time.Now().UTC(),
		}); err != nil {
			logger.Warn().Err(err).Msg("failed to publish update event")
		}
	})
	if err != nil {
		logger.Warn().Err(err).Msg("room closed before prompt applied")
	}
}

// finishReject re-enters the coordinator goroutine to settle a prompt
// as rejected.
func (c *Coordinator) finishReject(ctx context.Context, rec domain.PromptRecord, reason string) {
	logger := log.Ctx(ctx)

	err := c.do(ctx, func() { c.reject(ctx, rec, reason) })
	if err != nil {
		logger.Warn().Err(err).Msg("room closed before prompt rejected")
	}
}

// reject runs on the coordinator goroutine. The provisional record is
// removed best-effort; the broadcast goes out either way so no listener
// is left waiting on a prompt that will never apply.
func (c *Coordinator) reject(ctx context.Context, rec domain.PromptRecord, reason string) {
	logger := log.Ctx(ctx)

	if err := c.deps.Store.DeletePrompt(ctx, c.cfg.ID, rec.ID); err != nil {
		logger.Warn().Err(err).Str(log.FieldPromptID, rec.ID).Msg("failed to delete rejected prompt record")
	}

	c.stage(logger, rec.ID, domain.StageRejected)
	audit.LogWithDetail(ctx, audit.ActionPromptRejected, rec.ID, reason, "prompt rejected")

	c.registry.Broadcast(&domain.PromptRejectedMessage{
		Type:   domain.MsgTypePromptRejected,
		Prompt: rec,
		Reason: reason,
	})
}

func (c *Coordinator) stage(logger zerolog.Logger, promptID string, s domain.Stage) {
	evt := logger.Debug().Str(log.FieldStage, string(s))
	if promptID != "" {
		evt = evt.Str(log.FieldPromptID, promptID)
	}
	evt.Msg("prompt stage")
}

func newPromptID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate prompt id: %w", err)
	}
	return id.String(), nil
}
