package session

import (
	"fmt"
	"time"

	apperrors "sudooom.memmatch/pkg/errors"
)

// LayoutRange bounds for RestartWithRandomLayout
type LayoutRange struct {
	MinRows int `mapstructure:"min_rows"`
	MaxRows int `mapstructure:"max_rows"`
	MinCols int `mapstructure:"min_cols"`
	MaxCols int `mapstructure:"max_cols"`
}

// Config game rules for one session
type Config struct {
	Rows            int           `mapstructure:"rows"`
	Cols            int           `mapstructure:"cols"`
	FlipDuration    time.Duration `mapstructure:"flip_duration"`
	CompareDelay    time.Duration `mapstructure:"compare_delay"`
	FlipBackDelay   time.Duration `mapstructure:"flip_back_delay"`
	RetireDuration  time.Duration `mapstructure:"retire_duration"`
	MatchScore      int           `mapstructure:"match_score"`
	MismatchPenalty int           `mapstructure:"mismatch_penalty"`
	Seed            uint64        `mapstructure:"seed"`
	SymbolCount     int           `mapstructure:"symbol_count"`
	PoolKey         string        `mapstructure:"pool_key"`
	Random          LayoutRange   `mapstructure:"random"`
}

// DefaultConfig 2x3 board with the stock timings
func DefaultConfig() Config {
	return Config{
		Rows:            2,
		Cols:            3,
		FlipDuration:    250 * time.Millisecond,
		CompareDelay:    500 * time.Millisecond,
		FlipBackDelay:   50 * time.Millisecond,
		RetireDuration:  150 * time.Millisecond,
		MatchScore:      100,
		MismatchPenalty: 10,
		PoolKey:         DefaultPoolKey,
		Random: LayoutRange{
			MinRows: 2,
			MaxRows: 4,
			MinCols: 2,
			MaxCols: 4,
		},
	}
}

// Validate checks the rules; board parity is checked per game by StartNewGame
func (c Config) Validate() error {
	if c.Rows <= 0 || c.Cols <= 0 {
		return apperrors.ErrInvalidBoard.Wrap(fmt.Errorf("rows=%d cols=%d", c.Rows, c.Cols))
	}
	if c.FlipDuration < 0 || c.CompareDelay < 0 || c.FlipBackDelay < 0 || c.RetireDuration < 0 {
		return apperrors.ErrInvalidTiming
	}
	if c.MatchScore < 0 || c.MismatchPenalty < 0 {
		return apperrors.ErrInvalidScoring
	}
	if c.SymbolCount < 0 {
		return apperrors.ErrNotEnoughSymbols.Wrap(fmt.Errorf("symbol_count=%d", c.SymbolCount))
	}
	r := c.Random
	if r.MinRows <= 0 || r.MinCols <= 0 || r.MinRows > r.MaxRows || r.MinCols > r.MaxCols {
		return apperrors.ErrInvalidRange.Wrap(fmt.Errorf("rows %d..%d cols %d..%d", r.MinRows, r.MaxRows, r.MinCols, r.MaxCols))
	}
	return nil
}
