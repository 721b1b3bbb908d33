package pairing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sudooom.memmatch/internal/game/tile"
	"sudooom.memmatch/internal/task"
)

// Rules comparison timing and scoring
type Rules struct {
	CompareDelay    time.Duration
	FlipBackDelay   time.Duration
	MatchScore      int
	MismatchPenalty int
}

// Observer receives resolution outcomes. Called without the resolver lock held; epoch is the
// value passed to the Reset that preceded the unit's formation.
type Observer interface {
	Matched(epoch uint64, a, b tile.Info)
	Mismatched(epoch uint64, a, b tile.Info)
	HUDChanged(epoch uint64, t Tallies)
}

// Resolver forms units from the queue and resolves each one after the compare delay
type Resolver struct {
	mu       sync.Mutex
	timer    task.Timer
	queue    *Queue
	rules    Rules
	observer Observer
	pending  map[string]*Unit
	tallies  Tallies
	epoch    uint64
	logger   *slog.Logger
}

// NewResolver creates a resolver draining queue
func NewResolver(timer task.Timer, queue *Queue, rules Rules, observer Observer) *Resolver {
	return &Resolver{
		timer:    timer,
		queue:    queue,
		rules:    rules,
		observer: observer,
		pending:  make(map[string]*Unit),
		logger:   slog.Default().With("component", "Resolver"),
	}
}

// OnFlipped queues a tile that just turned face up and drains every formable pair
func (r *Resolver) OnFlipped(h tile.Handle) {
	if !r.queue.Enqueue(h) {
		r.logger.Debug("Flip not queued", "tileId", h.ID())
	}

	for {
		u, ok := r.queue.TryFormPair()
		if !ok {
			return
		}
		r.schedule(u)
	}
}

func (r *Resolver) schedule(u *Unit) {
	r.mu.Lock()
	u.Epoch = r.epoch
	u.Delay = r.rules.CompareDelay
	r.pending[u.ID] = u

	id := u.ID
	tk, err := r.timer.ScheduleAfter(u.Delay, "unit-"+id, func(ctx context.Context, target string, metadata map[string]any) error {
		r.resolve(id)
		return nil
	})
	if err != nil {
		r.mu.Unlock()
		r.logger.Error("Failed to schedule comparison, flipping back", "unitId", id, "error", err)
		r.abandon(id, u.A, u.B)
		return
	}
	u.task = tk
	r.mu.Unlock()

	a, b := u.A, u.B
	if !a.SetReleaseHook(func() { r.abandon(id, b) }) || !b.SetReleaseHook(func() { r.abandon(id, a) }) {
		r.abandon(id, a, b)
		return
	}
	r.logger.Debug("Comparison scheduled", "unitId", id, "a", a.ID(), "b", b.ID(), "delay", u.Delay)
}

// abandon cancels a pending unit without a verdict and flips the surviving tiles back.
// Tallies and observers are untouched.
func (r *Resolver) abandon(id string, survivors ...tile.Handle) {
	r.mu.Lock()
	u, ok := r.pending[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.pending, id)
	if u.task != nil {
		u.task.Cancel()
	}
	r.mu.Unlock()

	for _, h := range survivors {
		h.ResolveMismatchAndFlipBack(r.rules.FlipBackDelay)
	}
	r.logger.Debug("Comparison abandoned", "unitId", id, "a", u.A.ID(), "b", u.B.ID())
}

// resolve applies the verdict for a pending unit. Cancelled or stale units change nothing.
func (r *Resolver) resolve(id string) {
	r.mu.Lock()

	u, ok := r.pending[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.pending, id)

	a, okA := u.A.Info()
	b, okB := u.B.Info()
	if !okA || !okB || a.State != tile.InComparison || b.State != tile.InComparison || u.Epoch != r.epoch {
		r.mu.Unlock()
		r.logger.Warn("Stale comparison dropped", "unitId", id, "a", u.A.ID(), "b", u.B.ID())
		return
	}

	matched := a.SymbolID == b.SymbolID
	if matched {
		u.A.ResolveMatch()
		u.B.ResolveMatch()
		r.tallies.applyMatch(r.rules.MatchScore)
	} else {
		u.A.ResolveMismatchAndFlipBack(r.rules.FlipBackDelay)
		u.B.ResolveMismatchAndFlipBack(r.rules.FlipBackDelay)
		r.tallies.applyMismatch(r.rules.MismatchPenalty)
	}
	tallies := r.tallies
	epoch := u.Epoch
	r.mu.Unlock()

	r.logger.Debug("Comparison resolved",
		"unitId", id,
		"matched", matched,
		"score", tallies.Score,
		"moves", tallies.Moves,
		"matches", tallies.Matches)

	if r.observer == nil {
		return
	}
	if matched {
		r.observer.Matched(epoch, a, b)
	} else {
		r.observer.Mismatched(epoch, a, b)
	}
	r.observer.HUDChanged(epoch, tallies)
}

// Reset cancels every pending unit, empties the queue and zeroes the tallies
func (r *Resolver) Reset(epoch uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, u := range r.pending {
		if u.task != nil {
			u.task.Cancel()
		}
		delete(r.pending, id)
	}
	dropped := r.queue.Clear()
	r.tallies = Tallies{}
	r.epoch = epoch

	r.logger.Debug("Resolver reset", "epoch", epoch, "droppedQueued", len(dropped))
}

// Tallies current counters
func (r *Resolver) Tallies() Tallies {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.tallies
}

// Pending number of scheduled, unresolved units
func (r *Resolver) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.pending)
}
