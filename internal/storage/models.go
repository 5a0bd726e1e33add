package storage

import "time"

// Game lifecycle states.
const (
	StateActive   = "active"
	StateFinished = "finished"
)

// Group is a chat group known to the bot.
type Group struct {
	ID       int64
	Title    string
	StoredAt time.Time
}

// Game is one game session in one group. Display holds the game-type
// specific mutable state (the partially revealed mask for word-blocks,
// empty otherwise); it is stored in the metadata column.
type Game struct {
	ID        string
	Type      string
	GroupID   int64
	AdminID   int64
	Secret    string
	State     string
	Display   string
	CreatedAt time.Time
}

// Score is the cumulative point total of one user in one group.
type Score struct {
	UserID  int64
	GroupID int64
	Points  int
}

// Win is one immutable win record.
type Win struct {
	ID      int64
	UserID  int64
	GroupID int64
	Points  int
	TS      time.Time
}

// WinTotal is a per-user aggregate of win points over a window.
type WinTotal struct {
	UserID int64
	Points int
}

// LogEntry is one row of the operator event log.
type LogEntry struct {
	ID   int64
	Type string
	Text string
	Data []byte
	TS   time.Time
}
