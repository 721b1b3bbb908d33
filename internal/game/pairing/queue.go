package pairing

import (
	"fmt"
	"log/slog"
	"sync"

	"sudooom.memmatch/internal/game/tile"
)

// Queue FIFO of face-up tiles waiting to be paired. Enqueue and drain share one lock, and
// TryFormPair is the only path from FaceUp to InComparison.
type Queue struct {
	mu     sync.Mutex
	items  []tile.Handle
	queued map[tile.Handle]struct{}
	logger *slog.Logger
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{
		queued: make(map[tile.Handle]struct{}),
		logger: slog.Default().With("component", "PairingQueue"),
	}
}

// Enqueue appends a face-up tile not already queued
func (q *Queue) Enqueue(h tile.Handle) bool {
	info, ok := h.Info()
	if !ok || info.State != tile.FaceUp {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, dup := q.queued[h]; dup {
		return false
	}
	q.items = append(q.items, h)
	q.queued[h] = struct{}{}
	return true
}

// TryFormPair claims the two oldest live entries into a Unit
func (q *Queue) TryFormPair() (*Unit, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) < 2 {
		return nil, false
	}

	claimed := make([]tile.Handle, 0, 2)
	for len(claimed) < 2 && len(q.items) > 0 {
		h := q.popLocked()
		if !h.ClaimForComparison() {
			q.logger.Warn("Dropped stale queue entry", "tileId", h.ID())
			continue
		}
		claimed = append(claimed, h)
	}

	if len(claimed) < 2 {
		for _, h := range claimed {
			if h.Unclaim() {
				q.pushFrontLocked(h)
			}
		}
		q.checkInvariantsLocked()
		return nil, false
	}

	q.checkInvariantsLocked()
	return newUnit(claimed[0], claimed[1]), true
}

func (q *Queue) popLocked() tile.Handle {
	h := q.items[0]
	q.items[0] = tile.Handle{}
	q.items = q.items[1:]
	delete(q.queued, h)
	return h
}

func (q *Queue) pushFrontLocked(h tile.Handle) {
	q.items = append([]tile.Handle{h}, q.items...)
	q.queued[h] = struct{}{}
}

// Clear empties the queue and returns what it held
func (q *Queue) Clear() []tile.Handle {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	q.queued = make(map[tile.Handle]struct{})
	return items
}

// Len number of queued entries
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Contains reports whether h is queued
func (q *Queue) Contains(h tile.Handle) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, ok := q.queued[h]
	return ok
}

// Snapshot copy of the queued handles, oldest first
func (q *Queue) Snapshot() []tile.Handle {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]tile.Handle, len(q.items))
	copy(out, q.items)
	return out
}

// checkInvariantsLocked every live entry is FaceUp and appears once
func (q *Queue) checkInvariantsLocked() {
	if len(q.items) != len(q.queued) {
		q.violation(fmt.Sprintf("queue holds %d entries but indexes %d", len(q.items), len(q.queued)))
		return
	}

	seen := make(map[tile.Handle]struct{}, len(q.items))
	for _, h := range q.items {
		if _, dup := seen[h]; dup {
			q.violation(fmt.Sprintf("tile %d queued twice", h.ID()))
			return
		}
		seen[h] = struct{}{}

		if info, ok := h.Info(); ok && info.State != tile.FaceUp {
			q.violation(fmt.Sprintf("queued tile %d is %s", h.ID(), info.State))
			return
		}
	}
}

func (q *Queue) violation(msg string) {
	if debugInvariants {
		panic("pairing: " + msg)
	}
	q.logger.Error("Queue invariant violated", "detail", msg)
}
