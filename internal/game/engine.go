package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/derixofficial/quacktv-games/internal/storage"
)

// Store is the slice of the persistence gateway the engine needs.
type Store interface {
	CreateGame(ctx context.Context, g storage.Game) error
	GetGame(ctx context.Context, id string) (*storage.Game, error)
	ActiveGamesByGroup(ctx context.Context, groupID int64) ([]storage.Game, error)
	UpdateGameDisplay(ctx context.Context, id, display string) error
	FinishGame(ctx context.Context, id string) (bool, error)
	AppendLog(ctx context.Context, eventType, text string, data any) error
}

// Timers is the deferred-completion scheduler contract.
type Timers interface {
	Schedule(id string, delay time.Duration, fn func()) bool
	Cancel(id string)
}

// Engine runs the session lifecycle for every group.
type Engine struct {
	store      Store
	timers     Timers
	blockDelay time.Duration

	// onAsync receives outcomes produced outside a message evaluation
	// (the completion-timer path). Set once during wiring, before the
	// first session is created.
	onAsync func(groupID int64, outs []Outcome)
}

func NewEngine(store Store, timers Timers, blockDelay time.Duration) *Engine {
	return &Engine{
		store:      store,
		timers:     timers,
		blockDelay: blockDelay,
	}
}

// SetAsyncHandler registers the dispatcher for timer-driven outcomes.
func (e *Engine) SetAsyncHandler(fn func(groupID int64, outs []Outcome)) {
	e.onAsync = fn
}

// Create starts a new game session. The secret is trimmed and
// lower-cased; an empty secret is accepted and produces a trivially
// solved word-blocks game. The id is regenerated on collision.
func (e *Engine) Create(ctx context.Context, groupID, adminID int64, typ Type, secret string) (*storage.Game, error) {
	secret = strings.ToLower(strings.TrimSpace(secret))

	display := ""
	if typ == TypeWordBlocks {
		display = initialMask(secret)
	}

	for attempt := 0; attempt < idAttempts; attempt++ {
		g := storage.Game{
			ID:        newGameID(),
			Type:      string(typ),
			GroupID:   groupID,
			AdminID:   adminID,
			Secret:    secret,
			State:     storage.StateActive,
			Display:   display,
			CreatedAt: time.Now(),
		}
		err := e.store.CreateGame(ctx, g)
		if errors.Is(err, storage.ErrDuplicateID) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create game: %w", err)
		}
		e.logEvent(ctx, "game_created", string(typ), map[string]any{
			"game_id": g.ID, "group_id": groupID, "admin_id": adminID,
		})
		return &g, nil
	}
	return nil, fmt.Errorf("could not allocate a unique game id after %d attempts", idAttempts)
}

// Evaluate applies one normalized group message against every active
// session in the group and returns the resulting outcomes. text must
// already be trimmed and lower-cased by the router.
func (e *Engine) Evaluate(ctx context.Context, groupID int64, text string, sender Sender) ([]Outcome, error) {
	games, err := e.store.ActiveGamesByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load active games: %w", err)
	}

	var outs []Outcome
	for _, g := range games {
		switch Type(g.Type) {
		case TypeGuessWho, TypeFastGame:
			outs = append(outs, e.evaluateGuess(ctx, g, text, sender)...)
		case TypeWordBlocks:
			outs = append(outs, e.evaluateLetter(ctx, g, text)...)
		}
	}
	return outs, nil
}

func (e *Engine) evaluateGuess(ctx context.Context, g storage.Game, text string, sender Sender) []Outcome {
	if text != g.Secret {
		return nil
	}
	done, err := e.store.FinishGame(ctx, g.ID)
	if err != nil {
		log.Error().Err(err).Str("game_id", g.ID).Msg("finish game failed")
		return nil
	}
	if !done {
		// Lost the race against another trigger; that path emitted
		// the outcome already.
		return nil
	}
	return []Outcome{
		{Kind: KindWin, GameID: g.ID, GameType: Type(g.Type), Winner: sender},
		{Kind: KindAnnouncement, GameID: g.ID, GameType: Type(g.Type), Winner: sender},
	}
}

func (e *Engine) evaluateLetter(ctx context.Context, g storage.Game, text string) []Outcome {
	letter, ok := singleLetter(text)
	if !ok {
		return nil
	}
	mask, changed := applyLetter(g.Secret, g.Display, letter)
	if !changed {
		// Wrong or already-revealed letter: a defined no-op.
		return nil
	}
	if err := e.store.UpdateGameDisplay(ctx, g.ID, mask); err != nil {
		log.Error().Err(err).Str("game_id", g.ID).Msg("update display failed")
		return nil
	}
	if maskedCount(mask) <= 1 {
		gameID, groupID := g.ID, g.GroupID
		e.timers.Schedule(gameID, e.blockDelay, func() {
			e.fireCompletion(gameID, groupID)
		})
	}
	return []Outcome{{Kind: KindDisplayUpdate, GameID: g.ID, GameType: TypeWordBlocks, Mask: mask}}
}

// fireCompletion is the timer path: it re-reads the session and, if it
// is still active, finishes it and announces the secret. Racing against
// a concurrent stop is resolved by the conditional state update.
func (e *Engine) fireCompletion(gameID string, groupID int64) {
	ctx := context.Background()
	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Error().Err(err).Str("game_id", gameID).Msg("timer re-read failed")
		}
		return
	}
	if g.State != storage.StateActive {
		return
	}
	done, err := e.store.FinishGame(ctx, gameID)
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID).Msg("timer finish failed")
		return
	}
	if !done {
		return
	}
	e.logEvent(ctx, "game_timeout", string(TypeWordBlocks), map[string]any{
		"game_id": gameID, "group_id": groupID,
	})
	if e.onAsync != nil {
		e.onAsync(groupID, []Outcome{{
			Kind:     KindTimeoutReveal,
			GameID:   gameID,
			GameType: TypeWordBlocks,
			Secret:   g.Secret,
		}})
	}
}

// Stop finishes a session on request. Allowed for the session creator
// and for requesters the transport has already authorized (bot staff or
// group admins). Stopping an already finished session is harmless.
func (e *Engine) Stop(ctx context.Context, gameID string, requesterID int64, requesterIsAuthorized bool) (*storage.Game, error) {
	g, err := e.store.GetGame(ctx, gameID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	if requesterID != g.AdminID && !requesterIsAuthorized {
		return nil, ErrUnauthorized
	}
	if _, err := e.store.FinishGame(ctx, gameID); err != nil {
		return nil, err
	}
	e.timers.Cancel(gameID)
	e.logEvent(ctx, "game_stopped", g.Type, map[string]any{
		"game_id": gameID, "by": requesterID,
	})
	return g, nil
}

// Lookup returns a session by id.
func (e *Engine) Lookup(ctx context.Context, gameID string) (*storage.Game, error) {
	g, err := e.store.GetGame(ctx, gameID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrGameNotFound
	}
	return g, err
}

func (e *Engine) logEvent(ctx context.Context, eventType, text string, data map[string]any) {
	if err := e.store.AppendLog(ctx, eventType, text, data); err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("log event failed")
	}
}
