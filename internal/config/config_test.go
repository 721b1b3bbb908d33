package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.memmatch/internal/highscore"
	apperrors "sudooom.memmatch/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Game.Rows)
	assert.Equal(t, 3, cfg.Game.Cols)
	assert.Equal(t, 250*time.Millisecond, cfg.Game.FlipDuration)
	assert.Equal(t, 500*time.Millisecond, cfg.Game.CompareDelay)
	assert.Equal(t, 50*time.Millisecond, cfg.Game.FlipBackDelay)
	assert.Equal(t, 150*time.Millisecond, cfg.Game.RetireDuration)
	assert.Equal(t, 100, cfg.Game.MatchScore)
	assert.Equal(t, 10, cfg.Game.MismatchPenalty)
	assert.Equal(t, 4, cfg.Game.Random.MaxCols)

	require.Len(t, cfg.Pools, 1)
	assert.Equal(t, "tile", cfg.Pools[0].Key)
	assert.True(t, cfg.Pools[0].Expandable)

	assert.Equal(t, highscore.BackendMemory, cfg.HighScore.Backend)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Database.Enabled())
	assert.False(t, cfg.JWT.Enabled())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
app:
  log_level: debug
game:
  rows: 4
  cols: 4
  compare_delay: 1s
  symbol_count: 8
pools:
  - key: tile
    initial_size: 32
    expandable: false
sessions:
  max: 5
highscore:
  backend: sqlite
  sqlite_path: /tmp/scores.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Game.Rows)
	assert.Equal(t, time.Second, cfg.Game.CompareDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.Game.FlipDuration)
	assert.Equal(t, 8, cfg.Game.SymbolCount)
	assert.Equal(t, 32, cfg.Pools[0].InitialSize)
	assert.False(t, cfg.Pools[0].Expandable)
	assert.Equal(t, 5, cfg.Sessions.MaxSessions)
	assert.Equal(t, highscore.BackendSQLite, cfg.HighScore.Backend)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MEMMATCH_GAME_MATCH_SCORE", "250")
	t.Setenv("MEMMATCH_REDIS_HOST", "cache.local")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.Game.MatchScore)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "cache.local:6379", cfg.Redis.Addr())
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative timing", "game:\n  flip_duration: -1s\n"},
		{"inverted range", "game:\n  random:\n    min_rows: 4\n    max_rows: 2\n"},
		{"missing pool", "pools:\n  - key: other\n    initial_size: 1\n"},
		{"redis backend without redis", "highscore:\n  backend: redis\n"},
		{"postgres backend without database", "highscore:\n  backend: postgres\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadInvalidGameIsAppError(t *testing.T) {
	_, err := Load(writeConfig(t, "game:\n  match_score: -5\n"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidScoring))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
