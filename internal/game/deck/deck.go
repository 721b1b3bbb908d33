package deck

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

var (
	// ErrInvalidPairCount pair count below one
	ErrInvalidPairCount = errors.New("pair count must be at least 1")
	// ErrNotEnoughSymbols more pairs requested than distinct symbols available
	ErrNotEnoughSymbols = errors.New("not enough distinct symbols")
)

// Builder produces the symbol sequence for a board
type Builder interface {
	BuildDeck(pairCount int) ([]int, error)
}

// Generator shuffled decks where every symbol in [0, pairCount) appears exactly twice
type Generator struct {
	mu          sync.Mutex
	rng         *rand.Rand
	symbolCount int // 0 means unlimited
}

// NewGenerator creates a generator. seed 0 picks a random seed; symbolCount 0 disables the catalog check.
func NewGenerator(seed uint64, symbolCount int) *Generator {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Generator{
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		symbolCount: symbolCount,
	}
}

// BuildDeck returns 2*pairCount symbols shuffled with Fisher-Yates
func (g *Generator) BuildDeck(pairCount int) ([]int, error) {
	if pairCount < 1 {
		return nil, ErrInvalidPairCount
	}
	if g.symbolCount > 0 && pairCount > g.symbolCount {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrNotEnoughSymbols, pairCount, g.symbolCount)
	}

	deck := make([]int, 0, pairCount*2)
	for i := 0; i < pairCount; i++ {
		deck = append(deck, i, i)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for i := len(deck) - 1; i > 0; i-- {
		j := g.rng.IntN(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck, nil
}

// IntN random integer in [0, n) from the generator's source
func (g *Generator) IntN(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.rng.IntN(n)
}

// Fixed a predetermined deck, returned as is when its length matches the request
type Fixed []int

// BuildDeck implements Builder
func (f Fixed) BuildDeck(pairCount int) ([]int, error) {
	if pairCount < 1 {
		return nil, ErrInvalidPairCount
	}
	if len(f) != pairCount*2 {
		return nil, fmt.Errorf("fixed deck has %d symbols, need %d", len(f), pairCount*2)
	}
	out := make([]int, len(f))
	copy(out, f)
	return out, nil
}
