// Package history provides SQLite persistence for finished dictation sessions.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one finished session row. Transcript may be empty when content
// retention is disabled.
type Record struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      time.Time
	State           string
	AudioDevice     string
	BytesCaptured   int64
	TranscriptChars int
	Transcript      string
	Error           string
}

// Store wraps the sessions database.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the history database location under dir.
func DefaultDBPath(dir string) string {
	return filepath.Join(dir, "history.sqlite")
}

// Open opens (creating if needed) the history database with WAL journaling.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			startedAt REAL NOT NULL,
			finishedAt REAL NOT NULL,
			state TEXT NOT NULL,
			audioDevice TEXT,
			bytesCaptured INTEGER NOT NULL DEFAULT 0,
			transcriptChars INTEGER NOT NULL DEFAULT 0,
			transcript TEXT,
			error TEXT
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert records one finished session.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, startedAt, finishedAt, state, audioDevice, bytesCaptured, transcriptChars, transcript, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		timeToUnix(rec.StartedAt),
		timeToUnix(rec.FinishedAt),
		rec.State,
		rec.AudioDevice,
		rec.BytesCaptured,
		rec.TranscriptChars,
		rec.Transcript,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Recent returns up to limit sessions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, startedAt, finishedAt, state, audioDevice, bytesCaptured, transcriptChars, transcript, error
		FROM sessions
		ORDER BY startedAt DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var startedAt, finishedAt float64
		var audioDevice, transcript, errText sql.NullString
		if err := rows.Scan(&rec.ID, &startedAt, &finishedAt, &rec.State,
			&audioDevice, &rec.BytesCaptured, &rec.TranscriptChars, &transcript, &errText); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.StartedAt = timeFromUnix(startedAt)
		rec.FinishedAt = timeFromUnix(finishedAt)
		if audioDevice.Valid {
			rec.AudioDevice = audioDevice.String
		}
		if transcript.Valid {
			rec.Transcript = transcript.String
		}
		if errText.Valid {
			rec.Error = errText.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune removes sessions older than the retention window.
func (s *Store) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE startedAt < ?`, timeToUnix(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return removed, nil
}

func timeToUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
