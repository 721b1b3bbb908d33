package pool

import (
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrNotAcquired release of an instance that is not currently handed out
	ErrNotAcquired = errors.New("instance not acquired from this pool")
	// ErrUnknownPool no pool registered under the key
	ErrUnknownPool = errors.New("unknown pool key")
)

// Poolable instance lifecycle hooks. OnRelease must reset every transient field and cancel any
// delayed work owned by the instance.
type Poolable interface {
	comparable
	OnAcquire()
	OnRelease()
}

// Pool reuses instances of T. A fixed pool returns false from Acquire once exhausted.
type Pool[T Poolable] struct {
	mu         sync.Mutex
	free       []T
	out        map[T]struct{}
	newFn      func() T
	expandable bool
	created    int
	logger     *slog.Logger
}

// New creates a pool pre-filled with initialSize instances
func New[T Poolable](initialSize int, expandable bool, newFn func() T) *Pool[T] {
	if initialSize < 0 {
		initialSize = 0
	}

	p := &Pool[T]{
		free:       make([]T, 0, initialSize),
		out:        make(map[T]struct{}, initialSize),
		newFn:      newFn,
		expandable: expandable,
		logger:     slog.Default().With("component", "Pool"),
	}
	for i := 0; i < initialSize; i++ {
		p.free = append(p.free, newFn())
	}
	p.created = initialSize

	return p
}

// Acquire hands out an inactive instance, creating one when the pool is expandable
func (p *Pool[T]) Acquire() (T, bool) {
	p.mu.Lock()

	var item T
	switch {
	case len(p.free) > 0:
		last := len(p.free) - 1
		item = p.free[last]
		var zero T
		p.free[last] = zero
		p.free = p.free[:last]
	case p.expandable:
		item = p.newFn()
		p.created++
		p.logger.Debug("Pool expanded", "size", p.created)
	default:
		p.mu.Unlock()
		p.logger.Warn("Pool exhausted", "size", p.created)
		var zero T
		return zero, false
	}
	p.out[item] = struct{}{}
	p.mu.Unlock()

	item.OnAcquire()
	return item, true
}

// Release resets an instance and makes it available again
func (p *Pool[T]) Release(item T) error {
	p.mu.Lock()
	if _, ok := p.out[item]; !ok {
		p.mu.Unlock()
		return ErrNotAcquired
	}
	delete(p.out, item)
	p.mu.Unlock()

	item.OnRelease()

	p.mu.Lock()
	p.free = append(p.free, item)
	p.mu.Unlock()
	return nil
}

// Available number of instances ready to be handed out
func (p *Pool[T]) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.free)
}

// InUse number of instances currently handed out
func (p *Pool[T]) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.out)
}

// Size number of instances ever created
func (p *Pool[T]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.created
}
