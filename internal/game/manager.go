package game

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sudooom.memmatch/internal/game/event"
	"sudooom.memmatch/internal/game/session"
	"sudooom.memmatch/internal/task"
	apperrors "sudooom.memmatch/pkg/errors"
)

// ManagerConfig session registry limits
type ManagerConfig struct {
	MaxSessions   int           `mapstructure:"max"`
	EvictTimeout  time.Duration `mapstructure:"evict_timeout"`
	EvictInterval time.Duration `mapstructure:"evict_interval"`
}

// Manager hosts concurrent sessions sharing one scheduler and one set of tile pools
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*session.Session
	observers []event.Handler

	cfg    ManagerConfig
	game   session.Config
	timer  task.Timer
	pools  *session.Pools
	scores session.Scores

	evictTicker *time.Ticker
	stopChan    chan struct{}
	stopOnce    sync.Once

	logger *slog.Logger
}

// NewManager creates the registry and starts idle eviction when an interval is configured
func NewManager(cfg ManagerConfig, game session.Config, timer task.Timer, pools *session.Pools, scores session.Scores) *Manager {
	m := &Manager{
		sessions: make(map[string]*session.Session),
		cfg:      cfg,
		game:     game,
		timer:    timer,
		pools:    pools,
		scores:   scores,
		stopChan: make(chan struct{}),
		logger:   slog.Default().With("component", "SessionManager"),
	}

	if cfg.EvictInterval > 0 && cfg.EvictTimeout > 0 {
		m.evictTicker = time.NewTicker(cfg.EvictInterval)
		go m.evictLoop()
	}

	return m
}

// Observe attaches h to every session created afterwards
func (m *Manager) Observe(h event.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.observers = append(m.observers, h)
}

// Create registers a new idle session for player
func (m *Manager) Create(player string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		m.logger.Warn("Session limit reached", "max", m.cfg.MaxSessions)
		return nil, apperrors.ErrTooManySessions
	}

	s, err := session.New(m.game, session.Options{
		ID:     uuid.NewString(),
		Player: player,
		Timer:  m.timer,
		Pools:  m.pools,
		Scores: m.scores,
	})
	if err != nil {
		return nil, err
	}
	for _, h := range m.observers {
		s.Subscribe(h)
	}

	m.sessions[s.ID()] = s
	m.logger.Info("Session created", "sessionId", s.ID(), "player", player, "count", len(m.sessions))
	return s, nil
}

// Get returns a registered session
func (m *Manager) Get(id string) (*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return s, nil
}

// Remove closes and unregisters a session
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.Close()
	m.logger.Info("Removed session", "sessionId", id)
	return true
}

// Count number of registered sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}

// GameConfig rules applied to new sessions
func (m *Manager) GameConfig() session.Config {
	return m.game
}

func (m *Manager) evictLoop() {
	for {
		select {
		case <-m.evictTicker.C:
			m.evictInactive(time.Now())
		case <-m.stopChan:
			m.logger.Info("Evict loop stopped")
			return
		}
	}
}

// evictInactive removes sessions idle for longer than the evict timeout
func (m *Manager) evictInactive(now time.Time) int {
	var toEvict []string

	m.mu.RLock()
	for id, s := range m.sessions {
		if now.Sub(s.LastActive()) > m.cfg.EvictTimeout {
			toEvict = append(toEvict, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range toEvict {
		if m.Remove(id) {
			m.logger.Info("Evicted inactive session", "sessionId", id)
		}
	}
	return len(toEvict)
}

// Shutdown stops eviction and closes every session
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down SessionManager")

	m.stopOnce.Do(func() {
		close(m.stopChan)
		if m.evictTicker != nil {
			m.evictTicker.Stop()
		}
	})

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*session.Session)
	m.mu.Unlock()

	for _, s := range sessions {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Close()
	}

	m.logger.Info("SessionManager shutdown complete", "closed", len(sessions))
	return nil
}
