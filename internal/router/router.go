// Package router orchestrates inbound group messages: audit logging,
// engine evaluation and outcome dispatch. It holds no game rules.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/derixofficial/quacktv-games/internal/game"
)

// Store is the slice of the persistence gateway the router needs.
type Store interface {
	HasActiveGames(ctx context.Context, groupID int64) (bool, error)
	AppendMessage(ctx context.Context, userID, groupID int64) error
}

// Engine evaluates messages against active sessions.
type Engine interface {
	Evaluate(ctx context.Context, groupID int64, text string, sender game.Sender) ([]game.Outcome, error)
}

// Ledger awards points on wins.
type Ledger interface {
	AwardWin(ctx context.Context, userID, groupID int64) (int, error)
}

// Notifier delivers outbound announcements. Delivery failures are the
// transport's problem: the game state that triggered the send is
// already committed and is never rolled back.
type Notifier interface {
	Notify(groupID int64, text string)
}

type Router struct {
	store    Store
	engine   Engine
	ledger   Ledger
	notifier Notifier
}

func New(store Store, engine Engine, ledger Ledger, notifier Notifier) *Router {
	return &Router{store: store, engine: engine, ledger: ledger, notifier: notifier}
}

// HandleGroupMessage processes one inbound group text message.
func (r *Router) HandleGroupMessage(ctx context.Context, groupID int64, sender game.Sender, rawText string) {
	text := strings.ToLower(strings.TrimSpace(rawText))
	if text == "" {
		return
	}

	// Engagement counter for the weekly tie-break: recorded for every
	// message while the group has an active session, match or not.
	active, err := r.store.HasActiveGames(ctx, groupID)
	if err != nil {
		log.Error().Err(err).Int64("group_id", groupID).Msg("active game check failed")
	} else if active {
		if err := r.store.AppendMessage(ctx, sender.ID, groupID); err != nil {
			log.Warn().Err(err).Int64("group_id", groupID).Msg("message audit append failed")
		}
	}

	outs, err := r.engine.Evaluate(ctx, groupID, text, sender)
	if err != nil {
		log.Error().Err(err).Int64("group_id", groupID).Msg("evaluate failed")
		return
	}
	r.Dispatch(ctx, groupID, outs)
}

// Dispatch performs the side effect of each outcome. It is also the
// engine's async handler for timer-driven outcomes.
func (r *Router) Dispatch(ctx context.Context, groupID int64, outs []game.Outcome) {
	for _, o := range outs {
		switch o.Kind {
		case game.KindWin:
			if _, err := r.ledger.AwardWin(ctx, o.Winner.ID, groupID); err != nil {
				log.Error().Err(err).
					Int64("user_id", o.Winner.ID).
					Str("game_id", o.GameID).
					Msg("award win failed")
			}
		case game.KindAnnouncement:
			r.notifier.Notify(groupID, announcementText(o))
		case game.KindDisplayUpdate:
			r.notifier.Notify(groupID, o.Mask)
		case game.KindTimeoutReveal:
			r.notifier.Notify(groupID, fmt.Sprintf("⏱ Tempo scaduto! La parola era: %s", o.Secret))
		}
	}
}

// DispatchAsync adapts Dispatch for the engine's timer callback.
func (r *Router) DispatchAsync(groupID int64, outs []game.Outcome) {
	r.Dispatch(context.Background(), groupID, outs)
}

func announcementText(o game.Outcome) string {
	switch o.GameType {
	case game.TypeFastGame:
		return fmt.Sprintf("⚡ %s ha vinto il Fast Game! Parola corretta.", o.Winner.Name)
	default:
		return fmt.Sprintf("🎉 %s ha indovinato la parola! La partita %s è conclusa.", o.Winner.Name, o.GameID)
	}
}
