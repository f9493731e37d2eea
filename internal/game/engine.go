// internal/game/engine.go
//
// Score engine for a single round.
// Responsibilities:
//   - Apply a pick's score delta to the round state (no clamping).
//   - Evaluate transitions: continue → win / lose / forced_end.
//   - Derive presentation values (acid level, outcome messages).
//
// Evaluation order per pick:
//   1. points ≥ win threshold for the mode → win.
//   2. points ≤ lose threshold             → lose.
//   3. grocery mode and picks ≥ pick limit → forced_end.
//   4. otherwise                           → continue.
//
// Apply is pure: it never touches persisted progress.
package game

import (
	"fmt"
	"strings"
)

// AcidBarWidth is the number of cells in the acid level bar.
const AcidBarWidth = 50

// Apply adds delta to the state's points, counts the pick and evaluates the outcome.
func Apply(cfg Config, s State, delta int) (State, Outcome) {
	s.Points += delta
	s.PicksMade++
	return s, Evaluate(cfg, s)
}

// Evaluate reports the outcome for a state without changing it.
// Win is checked before lose, so a state satisfying both resolves to win.
func Evaluate(cfg Config, s State) Outcome {
	if s.Points >= cfg.WinThreshold(s.Mode) {
		return OutcomeWin
	}
	if s.Points <= cfg.LoseThreshold {
		return OutcomeLose
	}
	if s.Mode == ModeGrocery && s.PicksMade >= cfg.GroceryPickLimit {
		return OutcomeForcedEnd
	}
	return OutcomeContinue
}

// AcidLevel is the distance to the mode's win threshold clamped to [0, AcidBarWidth].
func AcidLevel(cfg Config, s State) int {
	lvl := cfg.WinThreshold(s.Mode) - s.Points
	if lvl < 0 {
		return 0
	}
	if lvl > AcidBarWidth {
		return AcidBarWidth
	}
	return lvl
}

// AcidBar renders the acid level as '#' cells followed by '.' cells.
func AcidBar(cfg Config, s State) string {
	return Bar(AcidLevel(cfg, s))
}

// Bar renders level (clamped to [0, AcidBarWidth]) as a fixed-width bar.
func Bar(level int) string {
	level = max(0, min(level, AcidBarWidth))
	return strings.Repeat("#", level) + strings.Repeat(".", AcidBarWidth-level)
}

// OutcomeMessage is the end-of-round text for a terminal outcome.
// Continue has no message.
func OutcomeMessage(cfg Config, s State, o Outcome) string {
	win := cfg.WinThreshold(s.Mode)
	switch o {
	case OutcomeWin:
		if s.Mode == ModeGrocery {
			return fmt.Sprintf("You reached %d points!", win)
		}
		return fmt.Sprintf("You reached %d points! You win!", win)
	case OutcomeLose:
		if s.Mode == ModeGrocery {
			return fmt.Sprintf("You dropped below %d points. You lose!", cfg.LoseThreshold)
		}
		return fmt.Sprintf("You reached %d points or less. You lose!", cfg.LoseThreshold)
	case OutcomeForcedEnd:
		return fmt.Sprintf("You finished with %d points.", s.Points)
	}
	return ""
}

// Mood is the reaction shown next to a pick.
type Mood string

const (
	MoodHappy Mood = "happy"
	MoodSad   Mood = "sad"
)

// MoodFor returns happy for positive scores and sad otherwise.
func MoodFor(score int) Mood {
	if score > 0 {
		return MoodHappy
	}
	return MoodSad
}
