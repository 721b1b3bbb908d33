package highscore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteStore embedded single-node store
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "memmatch.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS high_scores (
		player TEXT PRIMARY KEY,
		score INTEGER NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create high_scores table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get implements Store
func (s *SQLiteStore) Get(ctx context.Context, player string) (int, error) {
	var score int
	err := s.db.QueryRowContext(ctx, `SELECT score FROM high_scores WHERE player = ?`, normalize(player)).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select high score: %w", err)
	}
	return score, nil
}

// SaveIfHigher implements Store
func (s *SQLiteStore) SaveIfHigher(ctx context.Context, player string, score int) (bool, error) {
	if score < 0 {
		return false, fmt.Errorf("negative score %d", score)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO high_scores (player, score, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(player) DO UPDATE SET score = excluded.score, updated_at = CURRENT_TIMESTAMP
		WHERE high_scores.score < excluded.score`, normalize(player), score)
	if err != nil {
		return false, fmt.Errorf("upsert high score: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// Close implements Store
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
