// internal/progress/memory.go
//
// In-memory implementation of Store.
// Used in tests and when durability is not required.
//
// Characteristics:
//   - Concurrency-safe via RWMutex.
//   - State is lost when the process restarts.
//   - Failures can be injected with FailLoad/FailSave.

package progress

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is a mutex-guarded single record.
type MemoryStore struct {
	mu      sync.RWMutex
	state   State
	loadErr error
	saveErr error
	saves   int
}

// NewMemoryStore returns a store seeded with initial.
func NewMemoryStore(initial State) *MemoryStore {
	return &MemoryStore{state: initial}
}

// Load returns the current record.
func (m *MemoryStore) Load(ctx context.Context) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadErr != nil {
		return State{}, fmt.Errorf("%w: %v", ErrStorageRead, m.loadErr)
	}
	return m.state, nil
}

// Save replaces the current record.
func (m *MemoryStore) Save(ctx context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, m.saveErr)
	}
	m.state = s
	m.saves++
	return nil
}

// Add folds one round under the write lock.
func (m *MemoryStore) Add(ctx context.Context, sessionPoints int) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return State{}, fmt.Errorf("%w: %v", ErrStorageRead, m.loadErr)
	}
	if m.saveErr != nil {
		return State{}, fmt.Errorf("%w: %v", ErrStorageWrite, m.saveErr)
	}
	m.state = Fold(m.state, sessionPoints)
	m.saves++
	return m.state, nil
}

// FailLoad makes subsequent Loads fail with err (nil clears it).
func (m *MemoryStore) FailLoad(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// FailSave makes subsequent Saves fail with err (nil clears it).
func (m *MemoryStore) FailSave(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// Saves reports how many Saves and Adds succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
