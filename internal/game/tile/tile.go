package tile

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"sudooom.memmatch/internal/task"
)

// NoSymbol symbol id of an unassigned tile
const NoSymbol = -1

// Listener receives the two notifications a tile produces. Called without any tile lock held.
type Listener interface {
	TileFlipped(h Handle)
	TileRetired(h Handle)
}

// Binding board collaborators handed to a tile when it is placed
type Binding struct {
	Timer          task.Timer
	FlipDuration   time.Duration
	RetireDuration time.Duration
	Listener       Listener
}

// Info point-in-time view of a tile
type Info struct {
	ID       int   `json:"id"`
	Position int   `json:"position"`
	SymbolID int   `json:"symbolId"`
	State    State `json:"state"`
}

// Tile pooled board entity. Pool owns its existence; everything else holds a Handle.
type Tile struct {
	id int

	mu         sync.Mutex
	symbolID   int
	position   int
	state      State
	flipTarget State
	generation uint64 // bumped on every release
	active     bool
	binding    Binding
	pending    *task.Task
	onRelease  func() // set while the tile sits in a comparison unit
	logger     *slog.Logger
}

// New creates an inactive tile
func New(id int) *Tile {
	return &Tile{
		id:       id,
		symbolID: NoSymbol,
		position: -1,
		state:    FaceDown,
		logger:   slog.Default().With("component", "Tile"),
	}
}

// NewFactory returns a constructor handing out sequential tile ids. Share one factory between
// pools so ids stay unique across tile types.
func NewFactory() func() *Tile {
	var seq atomic.Int64
	return func() *Tile {
		return New(int(seq.Add(1)))
	}
}

// ID stable pool slot identity
func (t *Tile) ID() int {
	return t.id
}

// Handle returns a reference bound to the tile's current generation
func (t *Tile) Handle() Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Handle{t: t, gen: t.generation}
}

// State current state
func (t *Tile) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// SymbolID current symbol, NoSymbol when unassigned
func (t *Tile) SymbolID() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.symbolID
}

// Active reports whether the tile is handed out by a pool
func (t *Tile) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.active
}

// HasPending reports whether a delayed step is scheduled for the tile
func (t *Tile) HasPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.pending != nil
}

// OnAcquire pool hook
func (t *Tile) OnAcquire() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active = true
}

// OnRelease pool hook: cancels the outstanding step and the comparison unit holding the tile,
// then clears transient fields. Handles taken before the release stop resolving.
func (t *Tile) OnRelease() {
	t.mu.Lock()
	if t.pending != nil {
		t.pending.Cancel()
		t.pending = nil
	}
	hook := t.onRelease
	t.onRelease = nil
	t.symbolID = NoSymbol
	t.position = -1
	t.state = FaceDown
	t.flipTarget = FaceDown
	t.binding = Binding{}
	t.active = false
	t.generation++
	t.mu.Unlock()

	if hook != nil {
		hook()
	}
}

func (t *Tile) target() string {
	return "tile-" + strconv.Itoa(t.id)
}

// scheduleLocked must be called with t.mu held
func (t *Tile) scheduleLocked(delay time.Duration, step string, fn func()) bool {
	if t.binding.Timer == nil {
		t.logger.Error("Tile has no timer", "tileId", t.id, "step", step)
		return false
	}

	tk, err := t.binding.Timer.ScheduleAfter(delay, t.target(), func(ctx context.Context, target string, metadata map[string]any) error {
		fn()
		return nil
	})
	if err != nil {
		t.logger.Error("Failed to schedule tile step", "tileId", t.id, "step", step, "error", err)
		return false
	}
	t.pending = tk
	return true
}

// Handle non-owning reference to a tile. Operations through a handle whose tile was released
// since the handle was taken are no-ops.
type Handle struct {
	t   *Tile
	gen uint64
}

// IsZero reports whether the handle references nothing
func (h Handle) IsZero() bool {
	return h.t == nil
}

// Tile underlying tile
func (h Handle) Tile() *Tile {
	return h.t
}

// ID tile id, 0 for the zero handle
func (h Handle) ID() int {
	if h.t == nil {
		return 0
	}
	return h.t.id
}

// lock locks the tile if the handle is still current. The caller unlocks.
func (h Handle) lock() bool {
	if h.t == nil {
		return false
	}
	h.t.mu.Lock()
	if !h.t.active || h.t.generation != h.gen {
		h.t.mu.Unlock()
		return false
	}
	return true
}

// Valid reports whether the tile is still handed out under this handle's generation
func (h Handle) Valid() bool {
	if !h.lock() {
		return false
	}
	h.t.mu.Unlock()
	return true
}

// Info returns the tile view, false when the handle is stale
func (h Handle) Info() (Info, bool) {
	if !h.lock() {
		return Info{}, false
	}
	defer h.t.mu.Unlock()

	return Info{
		ID:       h.t.id,
		Position: h.t.position,
		SymbolID: h.t.symbolID,
		State:    h.t.state,
	}, true
}

// Assign places a freshly acquired tile on a board
func (h Handle) Assign(symbolID, position int, b Binding) bool {
	if !h.lock() {
		return false
	}
	defer h.t.mu.Unlock()

	t := h.t
	if t.state != FaceDown || t.symbolID != NoSymbol {
		return false
	}
	t.symbolID = symbolID
	t.position = position
	t.binding = b
	return true
}

// RequestFlip FaceDown -> Flipping -> FaceUp. Anything else is ignored.
func (h Handle) RequestFlip() bool {
	if !h.lock() {
		return false
	}
	defer h.t.mu.Unlock()

	t := h.t
	if t.state != FaceDown || t.symbolID == NoSymbol {
		return false
	}

	t.state = Flipping
	t.flipTarget = FaceUp
	if !t.scheduleLocked(t.binding.FlipDuration, "flip", h.finishFlip) {
		t.state = FaceDown
		return false
	}

	t.logger.Debug("Flip requested", "tileId", t.id, "position", t.position)
	return true
}

func (h Handle) finishFlip() {
	if !h.lock() {
		return
	}
	t := h.t
	if t.state != Flipping {
		t.mu.Unlock()
		return
	}

	t.pending = nil
	t.state = t.flipTarget
	listener := t.binding.Listener
	faceUp := t.state == FaceUp
	t.mu.Unlock()

	if faceUp && listener != nil {
		listener.TileFlipped(h)
	}
}

// ClaimForComparison FaceUp -> InComparison
func (h Handle) ClaimForComparison() bool {
	if !h.lock() {
		return false
	}
	defer h.t.mu.Unlock()

	if h.t.state != FaceUp {
		return false
	}
	h.t.state = InComparison
	return true
}

// SetReleaseHook registers fn to run once if the tile is released while in comparison.
// Called without the tile lock held. False when the handle is stale or the tile is not in comparison.
func (h Handle) SetReleaseHook(fn func()) bool {
	if !h.lock() {
		return false
	}
	defer h.t.mu.Unlock()

	if h.t.state != InComparison {
		return false
	}
	h.t.onRelease = fn
	return true
}

// HasReleaseHook reports whether a comparison unit still references the tile
func (t *Tile) HasReleaseHook() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.onRelease != nil
}

// Unclaim InComparison -> FaceUp for a claim that could not be completed into a pair
func (h Handle) Unclaim() bool {
	if !h.lock() {
		return false
	}
	defer h.t.mu.Unlock()

	if h.t.state != InComparison || h.t.pending != nil {
		return false
	}
	h.t.state = FaceUp
	h.t.onRelease = nil
	return true
}

// ResolveMatch InComparison -> Matched, then Retired after the retire window.
// Without a timer the tile retires right away on its own goroutine.
func (h Handle) ResolveMatch() bool {
	if !h.lock() {
		return false
	}

	t := h.t
	if t.state != InComparison {
		t.mu.Unlock()
		return false
	}

	t.state = Matched
	t.onRelease = nil
	scheduled := t.scheduleLocked(t.binding.RetireDuration, "retire", h.finishRetire)
	t.mu.Unlock()

	if !scheduled {
		go h.finishRetire()
	}
	return true
}

func (h Handle) finishRetire() {
	if !h.lock() {
		return
	}
	t := h.t
	if t.state != Matched {
		t.mu.Unlock()
		return
	}

	t.pending = nil
	listener := t.binding.Listener
	t.mu.Unlock()

	if listener != nil {
		listener.TileRetired(h)
	}
}

// ResolveMismatchAndFlipBack InComparison, then after delay Flipping -> FaceDown
func (h Handle) ResolveMismatchAndFlipBack(delay time.Duration) bool {
	if !h.lock() {
		return false
	}
	defer h.t.mu.Unlock()

	t := h.t
	if t.state != InComparison {
		return false
	}

	t.onRelease = nil
	if !t.scheduleLocked(delay, "flip-back", h.beginFlipBack) {
		t.state = FaceDown
	}
	return true
}

func (h Handle) beginFlipBack() {
	if !h.lock() {
		return
	}
	defer h.t.mu.Unlock()

	t := h.t
	if t.state != InComparison {
		return
	}

	t.pending = nil
	t.state = Flipping
	t.flipTarget = FaceDown
	if !t.scheduleLocked(t.binding.FlipDuration, "flip", h.finishFlip) {
		t.state = FaceDown
	}
}
