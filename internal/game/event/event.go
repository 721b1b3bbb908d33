package event

import "time"

// Kind notification type
type Kind string

const (
	KindFlipped    Kind = "flipped"
	KindRetired    Kind = "retired"
	KindMatched    Kind = "matched"
	KindMismatched Kind = "mismatched"
	KindHUDChanged Kind = "hud_changed"
	KindGameOver   Kind = "game_over"
)

// TileRef tile as seen by an observer at the time of the event
type TileRef struct {
	ID       int `json:"id"`
	Position int `json:"position"`
	SymbolID int `json:"symbolId"`
}

// HUD running tallies
type HUD struct {
	Score     int `json:"score"`
	Moves     int `json:"moves"`
	Matches   int `json:"matches"`
	HighScore int `json:"highScore"`
}

// Event outbound notification. Tiles holds one tile for Flipped/Retired and two for
// Matched/Mismatched. For GameOver, HUD.Score is the final score.
type Event struct {
	Kind         Kind      `json:"kind"`
	SessionID    string    `json:"sessionId"`
	Round        int       `json:"round"`
	At           time.Time `json:"at"`
	Tiles        []TileRef `json:"tiles,omitempty"`
	HUD          HUD       `json:"hud"`
	NewHighScore bool      `json:"newHighScore,omitempty"`
}
