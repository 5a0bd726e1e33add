package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateID is returned when a game id collides with an
	// existing one; callers are expected to regenerate and retry.
	ErrDuplicateID = errors.New("duplicate game id")
)

const pgUniqueViolation = "23505"

type Storage struct {
	db *pgxpool.Pool
}

// New opens a connection pool to Postgres.
func New(ctx context.Context, dsn string) (*Storage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &Storage{db: pool}, nil
}

// Ping verifies the connection.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases the pool.
func (s *Storage) Close() {
	s.db.Close()
}

// ---- groups ----

// UpsertGroup stores a group, refreshing the title on re-add.
func (s *Storage) UpsertGroup(ctx context.Context, id int64, title string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO groups (id, title, stored_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, stored_at = EXCLUDED.stored_at`,
		id, title)
	return err
}

// GetGroup returns one group by id.
func (s *Storage) GetGroup(ctx context.Context, id int64) (*Group, error) {
	var g Group
	err := s.db.QueryRow(ctx,
		"SELECT id, title, stored_at FROM groups WHERE id=$1", id).
		Scan(&g.ID, &g.Title, &g.StoredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGroups returns every known group.
func (s *Storage) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := s.db.Query(ctx, "SELECT id, title, stored_at FROM groups ORDER BY stored_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Title, &g.StoredAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ---- games ----

// CreateGame inserts a new game row. Returns ErrDuplicateID when the id
// is already taken.
func (s *Storage) CreateGame(ctx context.Context, g Game) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO games (id, type, group_id, admin_id, secret, state, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		g.ID, g.Type, g.GroupID, g.AdminID, g.Secret, g.State, g.Display, g.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateID
	}
	return err
}

// GetGame returns one game by id.
func (s *Storage) GetGame(ctx context.Context, id string) (*Game, error) {
	var g Game
	err := s.db.QueryRow(ctx,
		`SELECT id, type, group_id, admin_id, secret, state, metadata, created_at
		 FROM games WHERE id=$1`, id).
		Scan(&g.ID, &g.Type, &g.GroupID, &g.AdminID, &g.Secret, &g.State, &g.Display, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ActiveGamesByGroup returns the active games in a group, oldest first.
func (s *Storage) ActiveGamesByGroup(ctx context.Context, groupID int64) ([]Game, error) {
	return s.queryGames(ctx,
		`SELECT id, type, group_id, admin_id, secret, state, metadata, created_at
		 FROM games WHERE group_id=$1 AND state=$2 ORDER BY created_at`,
		groupID, StateActive)
}

// ActiveGames returns every active game across all groups.
func (s *Storage) ActiveGames(ctx context.Context) ([]Game, error) {
	return s.queryGames(ctx,
		`SELECT id, type, group_id, admin_id, secret, state, metadata, created_at
		 FROM games WHERE state=$1 ORDER BY created_at`,
		StateActive)
}

// ListGames returns a page of games, newest first.
func (s *Storage) ListGames(ctx context.Context, limit, offset int) ([]Game, error) {
	return s.queryGames(ctx,
		`SELECT id, type, group_id, admin_id, secret, state, metadata, created_at
		 FROM games ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
}

func (s *Storage) queryGames(ctx context.Context, query string, args ...any) ([]Game, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		var g Game
		if err := rows.Scan(&g.ID, &g.Type, &g.GroupID, &g.AdminID, &g.Secret, &g.State, &g.Display, &g.CreatedAt); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// HasActiveGames reports whether at least one game is active in the group.
func (s *Storage) HasActiveGames(ctx context.Context, groupID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM games WHERE group_id=$1 AND state=$2)",
		groupID, StateActive).Scan(&exists)
	return exists, err
}

// UpdateGameDisplay persists a new display mask.
func (s *Storage) UpdateGameDisplay(ctx context.Context, id, display string) error {
	tag, err := s.db.Exec(ctx, "UPDATE games SET metadata=$1 WHERE id=$2", display, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FinishGame transitions a game from active to finished. The update is
// conditional on the prior state, so concurrent finish attempts race
// safely: exactly one caller observes true.
func (s *Storage) FinishGame(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		"UPDATE games SET state=$1 WHERE id=$2 AND state=$3",
		StateFinished, id, StateActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ---- scoring ----

// RecordWin appends a win record and bumps the cumulative score in one
// transaction, so the two writes apply together or not at all. Returns
// the new cumulative total.
func (s *Storage) RecordWin(ctx context.Context, userID, groupID int64, points int) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		"INSERT INTO wins (user_id, group_id, points, ts) VALUES ($1, $2, $3, NOW())",
		userID, groupID, points)
	if err != nil {
		return 0, err
	}

	var total int
	err = tx.QueryRow(ctx,
		`INSERT INTO points (user_id, group_id, points) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, group_id) DO UPDATE SET points = points.points + EXCLUDED.points
		 RETURNING points`,
		userID, groupID, points).Scan(&total)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return total, nil
}

// LeaderboardRows returns the top scores of a group, points descending,
// user id ascending on equal points.
func (s *Storage) LeaderboardRows(ctx context.Context, groupID int64, limit int) ([]Score, error) {
	rows, err := s.db.Query(ctx,
		`SELECT user_id, group_id, points FROM points
		 WHERE group_id=$1 ORDER BY points DESC, user_id ASC LIMIT $2`,
		groupID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []Score
	for rows.Next() {
		var sc Score
		if err := rows.Scan(&sc.UserID, &sc.GroupID, &sc.Points); err != nil {
			return nil, err
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

// WeeklyWinTotals aggregates win points per user since the cutoff,
// highest totals first.
func (s *Storage) WeeklyWinTotals(ctx context.Context, since time.Time) ([]WinTotal, error) {
	rows, err := s.db.Query(ctx,
		`SELECT user_id, SUM(points) FROM wins WHERE ts >= $1
		 GROUP BY user_id ORDER BY SUM(points) DESC, user_id ASC`,
		since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []WinTotal
	for rows.Next() {
		var t WinTotal
		if err := rows.Scan(&t.UserID, &t.Points); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// CountMessagesSince counts a user's audited messages since the cutoff.
func (s *Storage) CountMessagesSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM messages WHERE user_id=$1 AND ts >= $2",
		userID, since).Scan(&count)
	return count, err
}

// ---- message audit ----

// AppendMessage records one group message for the weekly tie-break.
func (s *Storage) AppendMessage(ctx context.Context, userID, groupID int64) error {
	_, err := s.db.Exec(ctx,
		"INSERT INTO messages (user_id, group_id, ts) VALUES ($1, $2, NOW())",
		userID, groupID)
	return err
}

// PruneMessagesBefore drops audit rows older than the cutoff. Rows
// inside the weekly aggregation window are never touched.
func (s *Storage) PruneMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM messages WHERE ts < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ---- event log ----

// AppendLog records one operator log event. data is marshalled to JSON;
// nil stores NULL.
func (s *Storage) AppendLog(ctx context.Context, eventType, text string, data any) error {
	var payload []byte
	if data != nil {
		var err error
		payload, err = json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal log data: %w", err)
		}
	}
	_, err := s.db.Exec(ctx,
		"INSERT INTO logs (type, text, data, ts) VALUES ($1, $2, $3, NOW())",
		eventType, text, payload)
	return err
}

// ListLogs returns a page of log entries, newest first.
func (s *Storage) ListLogs(ctx context.Context, limit, offset int) ([]LogEntry, error) {
	rows, err := s.db.Query(ctx,
		"SELECT id, type, text, COALESCE(data, 'null'::jsonb), ts FROM logs ORDER BY id DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.Type, &e.Text, &e.Data, &e.TS); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
