package event

import (
	"log/slog"
	"sync"
)

// Handler consumes events. It runs on the publishing goroutine and must not block.
type Handler func(e Event)

// Bus observer registry. Publish delivers synchronously in subscription order.
type Bus struct {
	mu     sync.RWMutex
	subs   []*Subscription
	nextID uint64
	logger *slog.Logger
}

// Subscription registration handle
type Subscription struct {
	id      uint64
	kinds   map[Kind]struct{} // empty means all kinds
	handler Handler
	bus     *Bus
	once    sync.Once
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{
		logger: slog.Default().With("component", "EventBus"),
	}
}

// Subscribe registers h for the given kinds, or for every kind when none are given
func (b *Bus) Subscribe(h Handler, kinds ...Kind) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:      b.nextID,
		handler: h,
		bus:     b,
	}
	if len(kinds) > 0 {
		sub.kinds = make(map[Kind]struct{}, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = struct{}{}
		}
	}
	b.subs = append(b.subs, sub)
	return sub
}

// Unsubscribe removes the subscription; safe to call more than once
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.remove(s.id)
	})
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers e to every matching subscriber. A panicking handler is logged and skipped.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.kinds != nil {
			if _, ok := sub.kinds[e.Kind]; !ok {
				continue
			}
		}
		b.deliver(sub, e)
	}
}

func (b *Bus) deliver(sub *Subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				"kind", e.Kind,
				"sessionId", e.SessionID,
				"panic", r)
		}
	}()
	sub.handler(e)
}

// Len number of active subscriptions
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs)
}

// Close drops every subscription
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = nil
}
