package storage

import "context"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS groups (
		id        BIGINT PRIMARY KEY,
		title     TEXT NOT NULL DEFAULT '',
		stored_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS games (
		id         TEXT PRIMARY KEY,
		type       TEXT NOT NULL,
		group_id   BIGINT NOT NULL,
		admin_id   BIGINT NOT NULL,
		secret     TEXT NOT NULL,
		state      TEXT NOT NULL,
		metadata   TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS games_group_state_idx ON games (group_id, state)`,
	`CREATE TABLE IF NOT EXISTS points (
		user_id  BIGINT NOT NULL,
		group_id BIGINT NOT NULL,
		points   INT NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, group_id)
	)`,
	`CREATE TABLE IF NOT EXISTS wins (
		id       BIGSERIAL PRIMARY KEY,
		user_id  BIGINT NOT NULL,
		group_id BIGINT NOT NULL,
		points   INT NOT NULL,
		ts       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS wins_ts_idx ON wins (ts)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id       BIGSERIAL PRIMARY KEY,
		user_id  BIGINT NOT NULL,
		group_id BIGINT NOT NULL,
		ts       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS messages_user_ts_idx ON messages (user_id, ts)`,
	`CREATE TABLE IF NOT EXISTS logs (
		id   BIGSERIAL PRIMARY KEY,
		type TEXT NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		data JSONB,
		ts   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// InitSchema creates every table and index if missing. Safe to run on
// every startup.
func (s *Storage) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
