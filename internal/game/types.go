// internal/game/types.go
//
// Core type definitions for the score engine.
// Defines:
//   - Mode:    which game is being played (sequential pairs or grocery batch).
//   - Outcome: result of applying one pick (continue/win/lose/forced_end).
//   - State:   running points and pick count for a single round.
//   - Config:  thresholds and grocery limits, injected at construction.

package game

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects the game being played.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeGrocery    Mode = "grocery"
)

// ErrUnknownMode is returned by ParseMode for anything but the two modes.
var ErrUnknownMode = errors.New("unknown game mode")

// ParseMode maps user input ("sequential", "Grocery", ...) to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSequential:
		return ModeSequential, nil
	case ModeGrocery:
		return ModeGrocery, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Outcome is the result of one ScoreEngine step.
type Outcome string

const (
	OutcomeContinue  Outcome = "continue"
	OutcomeWin       Outcome = "win"
	OutcomeLose      Outcome = "lose"
	OutcomeForcedEnd Outcome = "forced_end" // grocery pick limit reached inside the continue band
)

// Terminal reports whether the outcome ends the round.
func (o Outcome) Terminal() bool { return o != OutcomeContinue }

// State is the per-round score state.
type State struct {
	Points    int  `json:"points"`
	Mode      Mode `json:"mode"`
	PicksMade int  `json:"picksMade"`
}

// NewState returns the zero state for mode.
func NewState(mode Mode) State { return State{Mode: mode} }
