package telegram

import (
	"sync"
	"time"

	"github.com/derixofficial/quacktv-games/internal/game"
)

// Kinds of in-progress private flows.
const (
	actionSetWord  = "set_word"
	actionAnnuncio = "annuncio"
)

// pendingAction is one in-progress private flow for one user: either a
// game setup waiting for the secret word, or an announcement draft.
type pendingAction struct {
	Kind      string
	GameType  game.Type
	GroupID   int64
	expiresAt time.Time
}

// pendingStore keeps at most one pending action per user, with an
// explicit expiry so abandoned flows do not accumulate for the life of
// the process. Expiry is checked lazily on read.
type pendingStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	actions map[int64]pendingAction
}

const defaultPendingTTL = 10 * time.Minute

func newPendingStore(ttl time.Duration) *pendingStore {
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	return &pendingStore{ttl: ttl, actions: make(map[int64]pendingAction)}
}

// Put replaces the user's pending action and restarts its expiry.
func (p *pendingStore) Put(userID int64, a pendingAction) {
	p.mu.Lock()
	a.expiresAt = time.Now().Add(p.ttl)
	p.actions[userID] = a
	p.mu.Unlock()
}

// Get returns the user's pending action if it has not expired.
func (p *pendingStore) Get(userID int64) (pendingAction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.actions[userID]
	if !ok {
		return pendingAction{}, false
	}
	if time.Now().After(a.expiresAt) {
		delete(p.actions, userID)
		return pendingAction{}, false
	}
	return a, true
}

// Delete removes the user's pending action, if any.
func (p *pendingStore) Delete(userID int64) {
	p.mu.Lock()
	delete(p.actions, userID)
	p.mu.Unlock()
}
