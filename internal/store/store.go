// Package store persists transcription history in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcriptions (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	formatted_text TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcriptions_created_at
	ON transcriptions (created_at DESC);
`

// Record is one saved transcription.
type Record struct {
	ID            string
	Text          string
	FormattedText string
	CreatedAt     time.Time
}

// Store wraps the history database. Safe for concurrent use; database/sql
// serializes access to the single connection pool.
type Store struct {
	db *sql.DB
}

// Open creates the database file and schema if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save inserts a transcription and returns the stored record.
func (s *Store) Save(ctx context.Context, text, formatted string) (Record, error) {
	rec := Record{
		ID:            uuid.NewString(),
		Text:          text,
		FormattedText: formatted,
		CreatedAt:     time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcriptions (id, text, formatted_text, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Text, rec.FormattedText, rec.CreatedAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("save transcription: %w", err)
	}
	return rec, nil
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, COALESCE(formatted_text, ''), created_at
		 FROM transcriptions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transcriptions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Text, &rec.FormattedText, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transcription: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes one record by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transcriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transcription: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
