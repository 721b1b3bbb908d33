package session

import (
	"fmt"
	"log/slog"

	"sudooom.memmatch/internal/game/pool"
	"sudooom.memmatch/internal/game/tile"
	apperrors "sudooom.memmatch/pkg/errors"
)

// DefaultPoolKey pool key for standard tiles
const DefaultPoolKey = "tile"

// Pools tile pools shared between sessions
type Pools = pool.Manager[*tile.Tile]

// Board tiles of one game in row-major order. A retired slot holds the zero handle.
type Board struct {
	rows, cols int
	key        string
	slots      []tile.Handle
	remaining  int
	pools      *Pools
}

// Rows board height
func (b *Board) Rows() int { return b.rows }

// Cols board width
func (b *Board) Cols() int { return b.cols }

// Remaining tiles still in play
func (b *Board) Remaining() int { return b.remaining }

// At handle at a position, false for out of range or retired slots
func (b *Board) At(position int) (tile.Handle, bool) {
	if position < 0 || position >= len(b.slots) {
		return tile.Handle{}, false
	}
	h := b.slots[position]
	return h, !h.IsZero()
}

// Retire returns a retired tile to its pool
func (b *Board) Retire(h tile.Handle) bool {
	info, ok := h.Info()
	if !ok || info.Position < 0 || info.Position >= len(b.slots) || b.slots[info.Position] != h {
		return false
	}

	b.slots[info.Position] = tile.Handle{}
	b.remaining--
	if err := b.pools.Release(b.key, h.Tile()); err != nil {
		slog.Default().With("component", "Board").Warn("Tile release failed", "tileId", h.ID(), "error", err)
	}
	return true
}

// Clear returns every tile still on the board to its pool
func (b *Board) Clear() {
	for i, h := range b.slots {
		if h.IsZero() {
			continue
		}
		if err := b.pools.Release(b.key, h.Tile()); err != nil {
			slog.Default().With("component", "Board").Warn("Tile release failed", "tileId", h.ID(), "error", err)
		}
		b.slots[i] = tile.Handle{}
	}
	b.remaining = 0
}

// Views per-slot tile views; the symbol is hidden unless the tile is revealed
func (b *Board) Views() []TileView {
	views := make([]TileView, len(b.slots))
	for pos, h := range b.slots {
		v := TileView{Position: pos, SymbolID: tile.NoSymbol, State: "retired"}
		if info, ok := h.Info(); ok {
			v.ID = info.ID
			v.State = info.State.String()
			if info.State.Revealed() {
				v.SymbolID = info.SymbolID
			}
		}
		views[pos] = v
	}
	return views
}

// TileView what a player may see of one board slot
type TileView struct {
	ID       int    `json:"id"`
	Position int    `json:"position"`
	SymbolID int    `json:"symbolId"`
	State    string `json:"state"`
}

// GridBuilder lays a deck out on a board of pooled tiles
type GridBuilder struct {
	Pools *Pools
	Key   string
}

// Build acquires rows*cols tiles and assigns deck[i] to position i. On pool exhaustion every
// acquired tile is released and no board is returned.
func (g GridBuilder) Build(rows, cols int, deck []int, bind tile.Binding) (*Board, error) {
	n := rows * cols
	if len(deck) != n {
		return nil, apperrors.ErrInvalidBoard.Wrap(fmt.Errorf("deck has %d symbols for %d slots", len(deck), n))
	}
	if _, ok := g.Pools.Get(g.Key); !ok {
		return nil, apperrors.ErrUnknownPool.Wrap(fmt.Errorf("key %q", g.Key))
	}

	b := &Board{
		rows:  rows,
		cols:  cols,
		key:   g.Key,
		slots: make([]tile.Handle, n),
		pools: g.Pools,
	}

	for pos, symbol := range deck {
		t, ok := g.Pools.Acquire(g.Key)
		if !ok {
			b.Clear()
			return nil, apperrors.ErrPoolExhausted.Wrap(fmt.Errorf("acquired %d of %d tiles", pos, n))
		}
		h := t.Handle()
		h.Assign(symbol, pos, bind)
		b.slots[pos] = h
		b.remaining++
	}
	return b, nil
}
