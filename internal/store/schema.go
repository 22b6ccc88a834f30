package store

import (
	"context"
	"fmt"
)

// schemaStatements create the tables the store writes to. They are safe to
// run on every start.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS raw_messages (
        session_alias   TEXT        NOT NULL,
        session_group   TEXT        NOT NULL DEFAULT '',
        direction       TEXT        NOT NULL,
        sequence        BIGINT      NOT NULL,
        ts              TIMESTAMPTZ NOT NULL,
        protocol        TEXT        NOT NULL DEFAULT '',
        properties      JSONB       NOT NULL DEFAULT '{}',
        parent_event_id TEXT,
        body            BYTEA       NOT NULL,
        PRIMARY KEY (session_alias, direction, sequence)
    );`,
	`CREATE INDEX IF NOT EXISTS raw_messages_parent_idx ON raw_messages (parent_event_id);`,
	`CREATE TABLE IF NOT EXISTS events (
        id        TEXT PRIMARY KEY,
        parent_id TEXT,
        name      TEXT        NOT NULL,
        type      TEXT        NOT NULL,
        status    TEXT        NOT NULL,
        start_ts  TIMESTAMPTZ NOT NULL,
        end_ts    TIMESTAMPTZ NOT NULL,
        body      JSONB       NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS event_messages (
        event_id      TEXT   NOT NULL REFERENCES events (id),
        session_alias TEXT   NOT NULL,
        direction     TEXT   NOT NULL,
        sequence      BIGINT NOT NULL,
        PRIMARY KEY (event_id, session_alias, direction, sequence)
    );`,
}

// EnsureSchema creates missing tables and indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	s.log.Debug("Database schema is up to date.")
	return nil
}
