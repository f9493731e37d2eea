package game

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid game config")

// Config holds mode thresholds and grocery limits.
type Config struct {
	WinThresholds    map[Mode]int
	LoseThreshold    int
	GroceryBatchSize int
	GroceryPickLimit int
}

// DefaultConfig returns the classic rules: 50 to win a sequential game,
// 100 to win a grocery run, -20 to lose either; 20 picks out of 50 items.
func DefaultConfig() Config {
	return Config{
		WinThresholds: map[Mode]int{
			ModeSequential: 50,
			ModeGrocery:    100,
		},
		LoseThreshold:    -20,
		GroceryBatchSize: 50,
		GroceryPickLimit: 20,
	}
}

// WinThreshold returns the win threshold for mode.
func (c Config) WinThreshold(mode Mode) int { return c.WinThresholds[mode] }

// Validate checks that every mode has a win threshold above the lose threshold
// and that grocery limits are positive.
func (c Config) Validate() error {
	for _, m := range []Mode{ModeSequential, ModeGrocery} {
		w, ok := c.WinThresholds[m]
		if !ok {
			return fmt.Errorf("%w: no win threshold for %s", ErrInvalidConfig, m)
		}
		if w <= c.LoseThreshold {
			return fmt.Errorf("%w: %s win threshold %d must exceed lose threshold %d", ErrInvalidConfig, m, w, c.LoseThreshold)
		}
	}
	if c.GroceryBatchSize < 1 {
		return fmt.Errorf("%w: grocery batch size %d", ErrInvalidConfig, c.GroceryBatchSize)
	}
	if c.GroceryPickLimit < 1 {
		return fmt.Errorf("%w: grocery pick limit %d", ErrInvalidConfig, c.GroceryPickLimit)
	}
	return nil
}
