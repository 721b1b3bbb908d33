package highscore

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Anonymous key used when a session has no player
const Anonymous = "anonymous"

// Store persisted best score per player
type Store interface {
	// Get returns the stored best score, 0 when none
	Get(ctx context.Context, player string) (int, error)
	// SaveIfHigher stores score when it beats the stored value and reports whether it did
	SaveIfHigher(ctx context.Context, player string, score int) (bool, error)
	Close() error
}

// Backend names accepted by Config.Backend
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config store selection
type Config struct {
	Backend    string `mapstructure:"backend"`
	KeyPrefix  string `mapstructure:"key_prefix"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

func normalize(player string) string {
	player = strings.TrimSpace(player)
	if player == "" {
		return Anonymous
	}
	return player
}

// MemoryStore process-local store
type MemoryStore struct {
	mu     sync.RWMutex
	scores map[string]int
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scores: make(map[string]int)}
}

// Get implements Store
func (m *MemoryStore) Get(ctx context.Context, player string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.scores[normalize(player)], nil
}

// SaveIfHigher implements Store
func (m *MemoryStore) SaveIfHigher(ctx context.Context, player string, score int) (bool, error) {
	if score < 0 {
		return false, fmt.Errorf("negative score %d", score)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := normalize(player)
	if cur, ok := m.scores[key]; ok && cur >= score {
		return false, nil
	}
	m.scores[key] = score
	return true, nil
}

// Close implements Store
func (m *MemoryStore) Close() error {
	return nil
}
