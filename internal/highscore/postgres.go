package highscore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore high scores in the high_scores table
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps a pool and makes sure the table exists
func NewPostgresStore(ctx context.Context, db *pgxpool.Pool) (*PostgresStore, error) {
	query := `
		CREATE TABLE IF NOT EXISTS high_scores (
			player     TEXT PRIMARY KEY,
			score      INTEGER NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if _, err := db.Exec(ctx, query); err != nil {
		return nil, fmt.Errorf("create high_scores: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Get implements Store
func (s *PostgresStore) Get(ctx context.Context, player string) (int, error) {
	query := `SELECT score FROM high_scores WHERE player = $1`

	var score int
	err := s.db.QueryRow(ctx, query, normalize(player)).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return score, nil
}

// SaveIfHigher implements Store; the WHERE on the conflict branch keeps the update monotonic
func (s *PostgresStore) SaveIfHigher(ctx context.Context, player string, score int) (bool, error) {
	if score < 0 {
		return false, fmt.Errorf("negative score %d", score)
	}

	query := `
		INSERT INTO high_scores (player, score, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (player) DO UPDATE
		SET score = EXCLUDED.score, updated_at = now()
		WHERE high_scores.score < EXCLUDED.score
	`

	tag, err := s.db.Exec(ctx, query, normalize(player), score)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Close implements Store; the pool is closed by its owner
func (s *PostgresStore) Close() error {
	return nil
}
