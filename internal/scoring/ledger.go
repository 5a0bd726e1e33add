// Package scoring owns cumulative points, the immutable win history and
// the weekly champion computation.
package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/derixofficial/quacktv-games/internal/storage"
)

const weeklyWindow = 7 * 24 * time.Hour

// Store is the slice of the persistence gateway the ledger needs.
type Store interface {
	RecordWin(ctx context.Context, userID, groupID int64, points int) (int, error)
	LeaderboardRows(ctx context.Context, groupID int64, limit int) ([]storage.Score, error)
	WeeklyWinTotals(ctx context.Context, since time.Time) ([]storage.WinTotal, error)
	CountMessagesSince(ctx context.Context, userID int64, since time.Time) (int, error)
	AppendLog(ctx context.Context, eventType, text string, data any) error
}

// Champion is the weekly winner with the aggregate that won the week.
type Champion struct {
	UserID int64
	Points int
}

type Ledger struct {
	store        Store
	pointsPerWin int
}

func NewLedger(store Store, pointsPerWin int) *Ledger {
	return &Ledger{store: store, pointsPerWin: pointsPerWin}
}

// AwardWin appends a win record and bumps the user's cumulative score
// for the group. The gateway applies both writes in one transaction, so
// a failure surfaces here instead of leaving a half-recorded win.
// Returns the new cumulative total.
func (l *Ledger) AwardWin(ctx context.Context, userID, groupID int64) (int, error) {
	total, err := l.store.RecordWin(ctx, userID, groupID, l.pointsPerWin)
	if err != nil {
		return 0, fmt.Errorf("record win: %w", err)
	}
	if err := l.store.AppendLog(ctx, "win", fmt.Sprintf("user %d won in %d", userID, groupID), map[string]any{
		"user_id": userID, "group_id": groupID, "new_points": total,
	}); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("win log failed")
	}
	return total, nil
}

// Leaderboard returns the top scores of a group, points descending with
// user id as the deterministic tie-break.
func (l *Ledger) Leaderboard(ctx context.Context, groupID int64, limit int) ([]storage.Score, error) {
	return l.store.LeaderboardRows(ctx, groupID, limit)
}

// WeeklyChampion picks the user with the highest win-point aggregate
// over the trailing seven days. Point ties are broken by the number of
// audited messages in the same window; a remaining tie goes to the
// lowest user id. Returns nil when the window holds no wins.
func (l *Ledger) WeeklyChampion(ctx context.Context, now time.Time) (*Champion, error) {
	cutoff := now.Add(-weeklyWindow)
	totals, err := l.store.WeeklyWinTotals(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("weekly totals: %w", err)
	}
	if len(totals) == 0 {
		return nil, nil
	}

	top := totals[0].Points
	var candidates []int64
	for _, t := range totals {
		if t.Points == top {
			candidates = append(candidates, t.UserID)
		}
	}
	if len(candidates) == 1 {
		return &Champion{UserID: candidates[0], Points: top}, nil
	}

	champion := candidates[0]
	bestMsgs := -1
	for _, uid := range candidates {
		count, err := l.store.CountMessagesSince(ctx, uid, cutoff)
		if err != nil {
			return nil, fmt.Errorf("tie-break message count: %w", err)
		}
		if count > bestMsgs || (count == bestMsgs && uid < champion) {
			bestMsgs = count
			champion = uid
		}
	}
	return &Champion{UserID: champion, Points: top}, nil
}

// WeeklyCutoff returns the start of the aggregation window ending at now.
func WeeklyCutoff(now time.Time) time.Time {
	return now.Add(-weeklyWindow)
}
