// Package game owns the lifecycle and rules of the three game types:
// Indovina Chi, Fast Game and Parole a Blocchi.
package game

import "errors"

// Type identifies a game type. The values are the ones stored in the
// games table.
type Type string

const (
	TypeGuessWho   Type = "indovinachi"
	TypeFastGame   Type = "fast"
	TypeWordBlocks Type = "blocchi"
)

// ParseType maps a stored or callback value to a Type.
func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case TypeGuessWho, TypeFastGame, TypeWordBlocks:
		return Type(s), true
	}
	return "", false
}

// Sender identifies the author of a group message.
type Sender struct {
	ID   int64
	Name string
}

// Kind discriminates session outcomes.
type Kind int

const (
	// KindWin awards points to the winner.
	KindWin Kind = iota
	// KindAnnouncement requests an outbound win announcement.
	KindAnnouncement
	// KindDisplayUpdate requests an outbound post of the new mask.
	KindDisplayUpdate
	// KindTimeoutReveal announces the secret after the countdown.
	KindTimeoutReveal
)

// Outcome is one side effect produced by evaluating a message or by a
// firing completion timer.
type Outcome struct {
	Kind     Kind
	GameID   string
	GameType Type
	Winner   Sender // Win, Announcement
	Mask     string // DisplayUpdate
	Secret   string // TimeoutReveal
}

var (
	// ErrGameNotFound is returned when a game id does not exist.
	ErrGameNotFound = errors.New("game not found")
	// ErrUnauthorized is returned when the requester may not stop the game.
	ErrUnauthorized = errors.New("not allowed to stop this game")
)
