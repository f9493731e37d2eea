// Package progress persists the cross-session aggregate (total points and
// games played) and folds finished rounds into it.
package progress

import (
	"context"
	"errors"
)

var (
	// ErrStorageRead is returned when a persisted record exists but cannot be read.
	// A missing record is not an error; Load returns the zero State.
	ErrStorageRead = errors.New("progress read failed")

	// ErrStorageWrite is returned when a record cannot be persisted.
	ErrStorageWrite = errors.New("progress write failed")
)

// State is the persisted aggregate.
type State struct {
	TotalPoints int `json:"total_points"`
	GamesPlayed int `json:"games_played"`
}

// Fold adds one finished round to the aggregate.
func Fold(p State, sessionPoints int) State {
	p.TotalPoints += sessionPoints
	p.GamesPlayed++
	return p
}

// Average is TotalPoints / GamesPlayed, or 0 before the first game.
func (p State) Average() float64 {
	if p.GamesPlayed == 0 {
		return 0
	}
	return float64(p.TotalPoints) / float64(p.GamesPlayed)
}

// Store is a single-record progress store.
type Store interface {
	// Load returns the persisted state, or the zero State if none exists.
	Load(ctx context.Context) (State, error)

	// Save replaces the persisted state. A Load after a successful Save observes it.
	Save(ctx context.Context, s State) error
	// Add folds one finished round into the record as a single atomic step and
	// returns the new state. Concurrent Adds never lose a round. An unreadable
	// record yields ErrStorageRead and is left untouched.
	Add(ctx context.Context, sessionPoints int) (State, error)
}
