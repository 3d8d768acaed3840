package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/assembly-coach/internal/domain"
	"github.com/ashureev/assembly-coach/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	writeAttempts  = 3
	writeBaseDelay = 100 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		task_id TEXT,
		frame_index INTEGER NOT NULL,
		from_step TEXT NOT NULL,
		to_step TEXT NOT NULL,
		speech TEXT,
		advanced INTEGER NOT NULL DEFAULT 0,
		reset INTEGER NOT NULL DEFAULT 0,
		hold_ms INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecordEvent appends one journal row, retrying on SQLITE_BUSY.
func (s *SQLiteStore) RecordEvent(ctx context.Context, e domain.Event) error {
	query := `
	INSERT INTO events (
		id, session_id, task_id, frame_index, from_step, to_step,
		speech, advanced, reset, hold_ms, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var taskID, speech interface{}
	if e.TaskID != "" {
		taskID = e.TaskID
	}
	if e.Speech != "" {
		speech = e.Speech
	}

	err := shared.RetryOnConflict(ctx, writeAttempts, writeBaseDelay, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			e.ID, e.SessionID, taskID, e.FrameIndex, e.FromStep, e.ToStep,
			speech, e.Advanced, e.Reset, e.HoldMillis, e.CreatedAt.UnixMilli(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListEvents returns the most recent events, newest first.
func (s *SQLiteStore) ListEvents(ctx context.Context, sessionID string, limit int) ([]domain.Event, error) {
	query := `
		SELECT id, session_id, task_id, frame_index, from_step, to_step,
		       speech, advanced, reset, hold_ms, created_at
		FROM events`
	var args []interface{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at DESC, frame_index DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close events rows", "error", closeErr)
		}
	}()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var taskID, speech sql.NullString
		var createdAt int64

		if err := rows.Scan(
			&e.ID, &e.SessionID, &taskID, &e.FrameIndex, &e.FromStep, &e.ToStep,
			&speech, &e.Advanced, &e.Reset, &e.HoldMillis, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		e.TaskID = taskID.String
		e.Speech = speech.String
		e.CreatedAt = time.UnixMilli(createdAt)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// PruneEvents deletes events created before cutoff.
func (s *SQLiteStore) PruneEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := shared.RetryOnConflict(ctx, writeAttempts, writeBaseDelay, func(ctx context.Context) error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff.UnixMilli())
		if err != nil {
			return err
		}
		n, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
