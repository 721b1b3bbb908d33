package pairing

import (
	"time"

	"github.com/google/uuid"

	"sudooom.memmatch/internal/game/tile"
	"sudooom.memmatch/internal/task"
)

// Unit two tiles claimed together, resolved once after the compare delay
type Unit struct {
	ID        string
	A, B      tile.Handle
	CreatedAt time.Time
	Delay     time.Duration
	Epoch     uint64

	task *task.Task
}

func newUnit(a, b tile.Handle) *Unit {
	return &Unit{
		ID:        uuid.NewString(),
		A:         a,
		B:         b,
		CreatedAt: time.Now(),
	}
}

// Tallies running score counters
type Tallies struct {
	Score   int `json:"score"`
	Moves   int `json:"moves"`
	Matches int `json:"matches"`
}

func (t *Tallies) applyMatch(matchScore int) {
	t.Moves++
	t.Matches++
	t.Score += matchScore
}

func (t *Tallies) applyMismatch(penalty int) {
	t.Moves++
	t.Score -= penalty
	if t.Score < 0 {
		t.Score = 0
	}
}
