// ABOUTME: SQLite implementation of the TurnStore interface using modernc.org/sqlite
// ABOUTME: Provides turn persistence with automatic schema creation and WAL mode.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements TurnStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path. The schema is
// automatically created if it doesn't exist. Parent directories are created
// if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("store opened", "path", path)
	return s, nil
}

// createSchema creates the turns table and indexes if missing.
func (s *SQLiteStore) createSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	agent_type TEXT NOT NULL,
	input TEXT NOT NULL,
	response TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	duration_ns INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, created_at);
`
	_, err := s.db.Exec(schema)
	return err
}

// SaveTurn persists one completed turn.
func (s *SQLiteStore) SaveTurn(ctx context.Context, turn *Turn) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, session_id, agent_type, input, response, error, duration_ns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.SessionID, turn.AgentType, turn.Input,
		turn.Response, turn.Error, turn.Duration.Nanoseconds(), turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting turn: %w", err)
	}
	return nil
}

// GetTurnsBySession returns the most recent turns for a session, oldest
// first. A limit of 0 means no limit.
func (s *SQLiteStore) GetTurnsBySession(ctx context.Context, sessionID string, limit int) ([]*Turn, error) {
	query := `
		SELECT id, session_id, agent_type, input, response, error, duration_ns, created_at
		FROM turns WHERE session_id = ? ORDER BY created_at ASC`
	args := []any{sessionID}
	if limit > 0 {
		// Select the newest N, then flip back to chronological order.
		query = `
		SELECT id, session_id, agent_type, input, response, error, duration_ns, created_at
		FROM (
			SELECT id, session_id, agent_type, input, response, error, duration_ns, created_at
			FROM turns WHERE session_id = ? ORDER BY created_at DESC LIMIT ?
		) ORDER BY created_at ASC`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []*Turn
	for rows.Next() {
		var t Turn
		var durationNS int64
		if err := rows.Scan(&t.ID, &t.SessionID, &t.AgentType, &t.Input,
			&t.Response, &t.Error, &durationNS, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		t.Duration = time.Duration(durationNS)
		turns = append(turns, &t)
	}
	return turns, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
