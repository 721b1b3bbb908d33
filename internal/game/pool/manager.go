package pool

import (
	"log/slog"
	"sync"
)

// Spec registration parameters for one keyed pool
type Spec struct {
	Key         string `mapstructure:"key"`
	InitialSize int    `mapstructure:"initial_size"`
	Expandable  bool   `mapstructure:"expandable"`
}

// Stats pool counters
type Stats struct {
	Key       string `json:"key"`
	Size      int    `json:"size"`
	Available int    `json:"available"`
	InUse     int    `json:"inUse"`
}

// Manager keyed pools, one per instance type
type Manager[T Poolable] struct {
	mu     sync.RWMutex
	pools  map[string]*Pool[T]
	logger *slog.Logger
}

// NewManager creates an empty manager
func NewManager[T Poolable]() *Manager[T] {
	return &Manager[T]{
		pools:  make(map[string]*Pool[T]),
		logger: slog.Default().With("component", "PoolManager"),
	}
}

// Register creates the pool for spec.Key; an existing key is kept.
func (m *Manager[T]) Register(spec Spec, newFn func() T) *Pool[T] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.pools[spec.Key]; ok {
		m.logger.Warn("Pool already registered", "key", spec.Key)
		return p
	}

	p := New(spec.InitialSize, spec.Expandable, newFn)
	m.pools[spec.Key] = p
	m.logger.Info("Pool registered",
		"key", spec.Key,
		"initialSize", spec.InitialSize,
		"expandable", spec.Expandable)
	return p
}

// Get returns the pool registered under key
func (m *Manager[T]) Get(key string) (*Pool[T], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pools[key]
	return p, ok
}

// Acquire hands out an instance from the keyed pool
func (m *Manager[T]) Acquire(key string) (T, bool) {
	p, ok := m.Get(key)
	if !ok {
		m.logger.Warn("Acquire from unknown pool", "key", key)
		var zero T
		return zero, false
	}
	return p.Acquire()
}

// Release returns an instance to its keyed pool. An unknown key resets the instance and drops it.
func (m *Manager[T]) Release(key string, item T) error {
	p, ok := m.Get(key)
	if !ok {
		item.OnRelease()
		m.logger.Warn("Release into unknown pool, instance dropped", "key", key)
		return ErrUnknownPool
	}
	return p.Release(item)
}

// Stats returns counters for every pool
func (m *Manager[T]) Stats() []Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make([]Stats, 0, len(m.pools))
	for key, p := range m.pools {
		stats = append(stats, Stats{
			Key:       key,
			Size:      p.Size(),
			Available: p.Available(),
			InUse:     p.InUse(),
		})
	}
	return stats
}
